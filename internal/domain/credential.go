package domain

import (
	"context"
	"strings"
	"time"
)

type CredentialState string

const (
	CredentialStatePending CredentialState = "pending"
	CredentialStateActive  CredentialState = "active"
	CredentialStateInvalid CredentialState = "invalid"
)

// Credential is a registry login owned by a single account. Password holds
// the plaintext only while a request is being processed; stores persist
// SealedPassword.
type Credential struct {
	ID             string
	AccountID      string
	Type           CredentialType
	Username       string
	Password       string
	SealedPassword []byte
	RegistryURL    string
	State          CredentialState
	Errors         FieldErrors
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c Credential) fieldValue(field Field) string {
	switch field {
	case FieldUsername:
		return c.Username
	case FieldPassword:
		return c.Password
	case FieldRegistryURL:
		return c.RegistryURL
	default:
		return ""
	}
}

func (c Credential) IsActive() bool {
	return c.State == CredentialStateActive
}

// Listed reports whether the credential shows up in the account's index.
func (c Credential) Listed() bool {
	return c.State == CredentialStateActive || c.State == CredentialStatePending
}

const maskedSecret = "********"

// MaskedPassword never reveals any part of the secret.
func (c Credential) MaskedPassword() string {
	if c.Password == "" && len(c.SealedPassword) == 0 {
		return ""
	}

	return maskedSecret
}

// CredentialInput carries user supplied fields. Nil pointers are fields the
// caller did not send.
type CredentialInput struct {
	Type        string  `json:"type"`
	Username    *string `json:"username"`
	Password    *string `json:"password"`
	RegistryURL *string `json:"registry_url"`
}

// Apply overlays the supplied fields onto c.
func (in CredentialInput) Apply(c Credential) Credential {
	if in.Username != nil {
		c.Username = strings.TrimSpace(*in.Username)
	}

	if in.Password != nil {
		c.Password = *in.Password
	}

	if in.RegistryURL != nil {
		c.RegistryURL = strings.TrimSpace(*in.RegistryURL)
	}

	return c
}

type CredentialStore interface {
	Insert(ctx context.Context, credential Credential) error
	Get(ctx context.Context, accountID string, credentialType CredentialType) (Credential, error)
	List(ctx context.Context, accountID string) ([]Credential, error)
	Replace(ctx context.Context, credential Credential) error
	Delete(ctx context.Context, accountID string, credentialType CredentialType) error
}

type CredentialManager interface {
	ListTypes(ctx context.Context, accountID string) ([]CredentialType, error)
	Get(ctx context.Context, accountID string, credentialType CredentialType) (Credential, error)
	Create(ctx context.Context, accountID string, input CredentialInput) (Credential, error)
	Update(ctx context.Context, accountID string, credentialType CredentialType, input CredentialInput) (Credential, error)
	Delete(ctx context.Context, accountID string, credentialType CredentialType) error
	Activate(ctx context.Context, accountID string, credentialType CredentialType) (Credential, error)
	CheckSingle(ctx context.Context, accountID string, credentialType CredentialType) (bool, error)
	GetDecryptedPassword(ctx context.Context, accountID string, credentialType CredentialType) (string, error)
}

// SecretSealer encrypts credential passwords at rest, scoped to an account.
type SecretSealer interface {
	Seal(accountID string, plaintext []byte) ([]byte, error)
	Open(accountID string, sealed []byte) ([]byte, error)
}
