package middlewares

import (
	"github.com/flowbaker/regcheck/internal/auth"
	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

type AccountAPIKeyProvider interface {
	GetAccountAPIKey(accountID string) (string, error)
}

// StaticAPIKeyProvider serves account public keys loaded from configuration.
type StaticAPIKeyProvider struct {
	keys map[string]string
}

func NewStaticAPIKeyProvider(keys map[string]string) *StaticAPIKeyProvider {
	return &StaticAPIKeyProvider{keys: keys}
}

func (p *StaticAPIKeyProvider) GetAccountAPIKey(accountID string) (string, error) {
	key, ok := p.keys[accountID]
	if !ok || key == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "No API key found for account")
	}

	return key, nil
}

func abort(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"errors": fiber.Map{"title": []string{message}},
	})
}

// AccountSignatureMiddleware verifies the Ed25519 request signature with the
// key of the account named in the path and stores the account in the
// request context.
func AccountSignatureMiddleware(keyProvider AccountAPIKeyProvider) fiber.Handler {
	return func(c fiber.Ctx) error {
		accountID := c.Params("accountID")
		if accountID == "" {
			log.Error().Str("path", c.Path()).Msg("No account ID found in path for signature verification")
			return abort(c, fiber.StatusBadRequest, "Account ID required for signature verification")
		}

		apiPublicKey, err := keyProvider.GetAccountAPIKey(accountID)
		if err != nil {
			log.Error().
				Err(err).
				Str("account_id", accountID).
				Msg("Failed to get API public key for account")
			return abort(c, fiber.StatusUnauthorized, "Invalid account or API key not found")
		}

		verifier, err := auth.NewSignatureVerifier(apiPublicKey)
		if err != nil {
			log.Error().
				Err(err).
				Str("account_id", accountID).
				Msg("Failed to create signature verifier")
			return abort(c, fiber.StatusInternalServerError, "Failed to initialize signature verification")
		}

		signatureHeader := c.Get(auth.SignatureHeader)
		timestampHeader := c.Get(auth.TimestampHeader)

		err = verifier.VerifyRequest(c.Method(), c.Path(), signatureHeader, timestampHeader, c.Body())
		if err != nil {
			log.Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Str("account_id", accountID).
				Str("timestamp", timestampHeader).
				Msg("API signature verification failed")

			return abort(c, fiber.StatusUnauthorized, "Invalid API signature")
		}

		log.Debug().
			Str("path", c.Path()).
			Str("method", c.Method()).
			Str("account_id", accountID).
			Msg("API signature verified successfully")

		return withAccount(c, accountID)
	}
}

// AccountContextMiddleware trusts the path account without a signature. Only
// for deployments where the upstream gateway authenticates requests.
func AccountContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		accountID := c.Params("accountID")
		if accountID == "" {
			return abort(c, fiber.StatusBadRequest, "Account ID required")
		}

		return withAccount(c, accountID)
	}
}

func withAccount(c fiber.Ctx, accountID string) error {
	c.SetContext(domain.NewContextWithAccount(c.Context(), accountID, xid.New().String()))

	return c.Next()
}
