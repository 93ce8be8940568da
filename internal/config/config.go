// Package config loads service configuration from an optional config file,
// an optional .env file and STOCKLEDGER_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. STOCKLEDGER_DATABASE_DSN.
const EnvPrefix = "STOCKLEDGER"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds Postgres settings. An empty DSN runs the in-memory store.
type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn" validate:"omitempty,startswith=postgres"`
	MaxConns    int32  `mapstructure:"max_conns" validate:"min=1"`
	MinConns    int32  `mapstructure:"min_conns" validate:"min=0,ltefield=MaxConns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	Stream   string        `mapstructure:"stream"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=16"`
	Issuer    string `mapstructure:"issuer" validate:"required"`
}

// LedgerConfig tunes the transaction coordinator.
type LedgerConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"min=1,max=10"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" validate:"min=0"`
	// Classifier selects how production lines are classified: "groups" or "expression".
	Classifier     string   `mapstructure:"classifier" validate:"oneof=groups expression"`
	ProducedGroups []string `mapstructure:"produced_groups" validate:"dive,uuid"`
	ConsumedGroups []string `mapstructure:"consumed_groups" validate:"dive,uuid"`
	Expression     string   `mapstructure:"expression" validate:"required_if=Classifier expression"`
	// Numbering is "strict" (gap-free) or "cached".
	Numbering string `mapstructure:"numbering" validate:"oneof=strict cached"`
}

// WorkerConfig tunes the outbox relay.
type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	BatchSize    int           `mapstructure:"batch_size" validate:"min=1"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"min=1"`
	Retention    time.Duration `mapstructure:"retention" validate:"gt=0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 10*time.Minute)
	v.SetDefault("redis.stream", "stockledger:events")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "stockledger")

	v.SetDefault("ledger.retry_attempts", 3)
	v.SetDefault("ledger.retry_backoff", 20*time.Millisecond)
	v.SetDefault("ledger.classifier", "groups")
	v.SetDefault("ledger.produced_groups", []string{})
	v.SetDefault("ledger.consumed_groups", []string{})
	v.SetDefault("ledger.expression", "")
	v.SetDefault("ledger.numbering", "strict")

	v.SetDefault("worker.poll_interval", 5*time.Second)
	v.SetDefault("worker.batch_size", 100)
	v.SetDefault("worker.max_retries", 5)
	v.SetDefault("worker.retention", 7*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an explicit config file; empty searches for config.yaml.
	ConfigFile string
	// EnvFile is loaded into the environment when present; empty means ".env".
	EnvFile string
}

// Load reads configuration. Priority (highest to lowest):
// 1. Environment variables with STOCKLEDGER_ prefix (e.g. STOCKLEDGER_DATABASE_DSN)
// 2. the .env file (it never overrides variables already set)
// 3. config.yaml
// 4. Built-in defaults
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && opts.EnvFile != "" {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/stockledger")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigFile != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// UsePostgres reports whether a database is configured.
func (c *Config) UsePostgres() bool {
	return c.Database.DSN != ""
}
