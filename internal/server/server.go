package server

import (
	"time"

	"github.com/flowbaker/regcheck/internal/controllers"
	"github.com/flowbaker/regcheck/internal/middlewares"
	"github.com/flowbaker/regcheck/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/rs/zerolog/log"
)

const serviceName = "regcheck"

type HTTPServerDependencies struct {
	CredentialsController *controllers.CredentialsController
	ComposeController     *controllers.ComposeController
	KeyProvider           middlewares.AccountAPIKeyProvider
	// DisableSignatures trusts the account in the path. Local development only.
	DisableSignatures bool
	AccessLog         bool
}

func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: serviceName,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			return controllers.RenderError(c, err)
		},
	})

	router.Use(cors.New())

	if deps.AccessLog {
		router.Use(logger.New())
	}

	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   serviceName,
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	account := router.Group("/api/v1/accounts/:accountID")

	if deps.DisableSignatures {
		log.Warn().Msg("API signature verification is disabled")
		account.Use(middlewares.AccountContextMiddleware())
	} else {
		if deps.KeyProvider == nil {
			log.Fatal().Msg("Key provider is nil, configure account API keys or disable signatures")
		}

		account.Use(middlewares.AccountSignatureMiddleware(deps.KeyProvider))
	}

	credentials := account.Group("/credentials")
	credentials.Get("/", deps.CredentialsController.Index)
	credentials.Post("/", deps.CredentialsController.Create)
	credentials.Put("/:type", deps.CredentialsController.Update)
	credentials.Delete("/:type", deps.CredentialsController.Destroy)
	credentials.Get("/:type/check_credential", deps.CredentialsController.CheckCredential)
	credentials.Post("/:type/activate", deps.CredentialsController.Activate)

	account.Post("/compose_file/check_credentials", deps.ComposeController.CheckCredentials)

	return router
}
