// Package config loads runtime settings from the environment, reading a
// .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GRPCPort string `env:"GRPC_PORT" envDefault:"50051"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"medwise"`

	JWTSecret       string        `env:"JWT_SECRET,required"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// TrustIdentityHeaders accepts the legacy role/userId headers.
	TrustIdentityHeaders bool          `env:"TRUST_IDENTITY_HEADERS" envDefault:"false"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	AuthRateLimit        float64       `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateBurst        int           `env:"AUTH_RATE_BURST" envDefault:"10"`
	AllowedOrigins       []string      `env:"ALLOWED_ORIGINS" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	RabbitMQ struct {
		URL   string `env:"RABBITMQ_URL"`
		Queue string `env:"RABBITMQ_QUEUE" envDefault:"medwise_events"`
	}
}

// Load reads .env when present and parses the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return Parse(nil)
}

// Parse reads settings from environ, or from the process environment when
// environ is nil, and validates them.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("config: MONGODB_URI is required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst <= 0 {
		return errors.New("config: auth rate limit and burst must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	return nil
}
