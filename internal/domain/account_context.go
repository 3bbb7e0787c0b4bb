package domain

import (
	"context"
)

type AccountContextKey struct{}

type AccountContext struct {
	AccountID string
	RequestID string
}

func NewContextWithAccount(ctx context.Context, accountID, requestID string) context.Context {
	return context.WithValue(ctx, AccountContextKey{}, &AccountContext{
		AccountID: accountID,
		RequestID: requestID,
	})
}

func GetAccountContext(ctx context.Context) (*AccountContext, bool) {
	accountContext, ok := ctx.Value(AccountContextKey{}).(*AccountContext)

	return accountContext, ok
}
