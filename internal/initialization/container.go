package initialization

import (
	"context"
	"fmt"
	"time"

	"github.com/flowbaker/regcheck/internal/compose"
	"github.com/flowbaker/regcheck/internal/config"
	"github.com/flowbaker/regcheck/internal/controllers"
	"github.com/flowbaker/regcheck/internal/domain"
	"github.com/flowbaker/regcheck/internal/managers"
	"github.com/flowbaker/regcheck/internal/middlewares"
	"github.com/flowbaker/regcheck/internal/publishers"
	"github.com/flowbaker/regcheck/internal/registry"
	"github.com/flowbaker/regcheck/internal/server"
	"github.com/flowbaker/regcheck/internal/stores/memory"
	"github.com/flowbaker/regcheck/internal/stores/mongodb"
	"github.com/flowbaker/regcheck/internal/stores/postgresql"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Container owns every long lived dependency of the service.
type Container struct {
	TypeRegistry      *domain.CredentialTypeRegistry
	CredentialManager domain.CredentialManager
	ComposeValidator  domain.ComposeCredentialValidator
	Parser            *compose.Parser
	Resolver          *registry.Resolver
	HTTPServer        *fiber.App
	closers           []func(ctx context.Context) error
}

// NewResolutionContainer builds the offline part of the graph: parser,
// resolver and type registry. Nothing here touches the network.
func NewResolutionContainer(cfg *config.Config) *Container {
	defaults := cfg.RegistryDefaults()

	return &Container{
		TypeRegistry: domain.NewCredentialTypeRegistry(defaults),
		Parser:       compose.NewParser(),
		Resolver:     registry.NewResolver(registry.ResolverDependencies{Defaults: defaults}),
	}
}

// NewContainer connects the configured store and queue and wires the HTTP
// server on top of them.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	container := NewResolutionContainer(cfg)

	store, err := container.buildStore(ctx, cfg.Store)
	if err != nil {
		container.Close(context.Background())
		return nil, err
	}

	publisher, err := container.buildPublisher(ctx, cfg.Queue)
	if err != nil {
		container.Close(context.Background())
		return nil, err
	}

	sealer, err := managers.NewCredentialSecretSealer(cfg.Secrets.MasterKey)
	if err != nil {
		container.Close(context.Background())
		return nil, fmt.Errorf("failed to create secret sealer: %w", err)
	}

	container.CredentialManager = managers.NewCredentialManager(managers.CredentialManagerDependencies{
		Store:        store,
		TypeRegistry: container.TypeRegistry,
		Sealer:       sealer,
		Publisher:    publisher,
	})

	container.ComposeValidator = managers.NewComposeCredentialValidator(managers.ComposeCredentialValidatorDependencies{
		Parser:       container.Parser,
		Resolver:     container.Resolver,
		Store:        store,
		TypeRegistry: container.TypeRegistry,
	})

	var keyProvider middlewares.AccountAPIKeyProvider
	if len(cfg.Auth.AccountKeys) > 0 {
		keyProvider = middlewares.NewStaticAPIKeyProvider(cfg.Auth.AccountKeys)
	}

	container.HTTPServer = server.NewHTTPServer(server.HTTPServerDependencies{
		CredentialsController: controllers.NewCredentialsController(controllers.CredentialsControllerDependencies{
			CredentialManager: container.CredentialManager,
		}),
		ComposeController: controllers.NewComposeController(controllers.ComposeControllerDependencies{
			Validator: container.ComposeValidator,
		}),
		KeyProvider:       keyProvider,
		DisableSignatures: cfg.Auth.DisableSignatures,
		AccessLog:         cfg.AccessLog,
	})

	log.Info().
		Str("store_driver", cfg.Store.Driver).
		Str("queue_driver", cfg.Queue.Driver).
		Msg("Service dependencies ready")

	return container, nil
}

func (c *Container) buildStore(ctx context.Context, cfg config.StoreConfig) (domain.CredentialStore, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory credential store, data is lost on restart")
		return memory.NewCredentialStore(), nil

	case config.StoreDriverMongoDB:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}

		c.closers = append(c.closers, client.Disconnect)

		if err := client.Ping(connectCtx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping mongodb: %w", err)
		}

		return mongodb.New(ctx, client.Database(cfg.MongoDatabase))

	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURI)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}

		c.closers = append(c.closers, func(context.Context) error {
			pool.Close()
			return nil
		})

		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		if err := pool.Ping(connectCtx); err != nil {
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}

		return postgresql.New(ctx, pool, postgresql.Opts{TablePrefix: cfg.TablePrefix})
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func (c *Container) buildPublisher(ctx context.Context, cfg config.QueueConfig) (domain.VerificationPublisher, error) {
	switch cfg.Driver {
	case config.QueueDriverLog:
		return publishers.NewLogVerificationPublisher(), nil

	case config.QueueDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		c.closers = append(c.closers, func(context.Context) error {
			return client.Close()
		})

		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		if err := client.Ping(connectCtx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}

		return publishers.NewRedisVerificationPublisher(publishers.RedisVerificationPublisherDependencies{
			Client: client,
			Queue:  cfg.Name,
		}), nil
	}

	return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
}

// Close releases connections in reverse order of creation.
func (c *Container) Close(ctx context.Context) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			log.Error().Err(err).Msg("Failed to close dependency")
		}
	}

	c.closers = nil
}
