package config

import (
	"fmt"
	"strings"

	"github.com/flowbaker/regcheck/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverMongoDB  = "mongodb"
	StoreDriverPostgres = "postgres"

	QueueDriverLog   = "log"
	QueueDriverRedis = "redis"

	envPrefix = "REGCHECK"
)

type Config struct {
	HTTPAddress string           `mapstructure:"http_address"`
	AccessLog   bool             `mapstructure:"access_log"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Secrets     SecretsConfig    `mapstructure:"secrets"`
	Store       StoreConfig      `mapstructure:"store"`
	Queue       QueueConfig      `mapstructure:"queue"`
	Registries  RegistriesConfig `mapstructure:"registries"`
}

type AuthConfig struct {
	DisableSignatures bool `mapstructure:"disable_signatures"`
	// AccountKeys maps an account id to its base64 Ed25519 public key.
	AccountKeys map[string]string `mapstructure:"account_keys"`
}

type SecretsConfig struct {
	// MasterKey is a base64 32 byte key from which per-account keys are derived.
	MasterKey string `mapstructure:"master_key"`
}

type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	PostgresURI   string `mapstructure:"postgres_uri"`
	TablePrefix   string `mapstructure:"table_prefix"`
}

type QueueConfig struct {
	Driver        string `mapstructure:"driver"`
	RedisAddress  string `mapstructure:"redis_address"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Name          string `mapstructure:"name"`
}

type RegistriesConfig struct {
	DockerHubURL               string `mapstructure:"docker_hub_url"`
	GoogleURL                  string `mapstructure:"google_url"`
	GithubContainerRegistryURL string `mapstructure:"github_container_registry_url"`
}

// Load reads regcheck.yaml (or configFile when set), then REGCHECK_*
// environment variables, on top of the defaults. Callers that serve traffic
// must also call Validate.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	envMappings := map[string]string{
		"secrets.master_key":  "REGCHECK_MASTER_KEY",
		"store.mongo_uri":     "MONGODB_URI",
		"store.postgres_uri":  "DATABASE_URL",
		"queue.redis_address": "REDIS_ADDRESS",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(configKey, ".", "_")), envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("regcheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.regcheck")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	log.Debug().
		Str("http_address", config.HTTPAddress).
		Str("store_driver", config.Store.Driver).
		Str("queue_driver", config.Queue.Driver).
		Msg("Config loaded")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_address", ":8080")
	v.SetDefault("access_log", true)

	v.SetDefault("auth.disable_signatures", false)

	v.SetDefault("secrets.master_key", "")

	v.SetDefault("store.driver", StoreDriverMemory)
	v.SetDefault("store.mongo_uri", "")
	v.SetDefault("store.mongo_database", "regcheck")
	v.SetDefault("store.postgres_uri", "")
	v.SetDefault("store.table_prefix", "")

	v.SetDefault("queue.driver", QueueDriverLog)
	v.SetDefault("queue.redis_address", "")
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.name", "regcheck:credential_verifications")

	v.SetDefault("registries.docker_hub_url", "https://index.docker.io/v1/")
	v.SetDefault("registries.google_url", "https://gcr.io")
	v.SetDefault("registries.github_container_registry_url", "https://ghcr.io")
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Secrets.MasterKey == "" {
		problems = append(problems, "REGCHECK_MASTER_KEY is required")
	}

	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverMongoDB:
		if c.Store.MongoURI == "" {
			problems = append(problems, "REGCHECK_STORE_MONGO_URI is required for the mongodb store")
		}
	case StoreDriverPostgres:
		if c.Store.PostgresURI == "" {
			problems = append(problems, "REGCHECK_STORE_POSTGRES_URI is required for the postgres store")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}

	switch c.Queue.Driver {
	case QueueDriverLog:
	case QueueDriverRedis:
		if c.Queue.RedisAddress == "" {
			problems = append(problems, "REGCHECK_QUEUE_REDIS_ADDRESS is required for the redis queue")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown queue driver %q", c.Queue.Driver))
	}

	if !c.Auth.DisableSignatures && len(c.Auth.AccountKeys) == 0 {
		problems = append(problems, "auth.account_keys must list at least one account when signatures are enabled")
	}

	if c.Registries.DockerHubURL == "" || c.Registries.GoogleURL == "" || c.Registries.GithubContainerRegistryURL == "" {
		problems = append(problems, "registries must define docker_hub_url, google_url and github_container_registry_url")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

func (c *Config) RegistryDefaults() domain.RegistryDefaults {
	return domain.RegistryDefaults{
		DockerHub:               c.Registries.DockerHubURL,
		Google:                  c.Registries.GoogleURL,
		GithubContainerRegistry: c.Registries.GithubContainerRegistryURL,
	}
}
