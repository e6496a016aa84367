package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

type Config struct {
	Server struct {
		// Port the HTTP server listens on
		Port string `env:"PORT" envDefault:"5000"`

		// Gin mode: debug, release or test
		Mode string `env:"GIN_MODE" envDefault:"release"`

		// Origins allowed by the CORS middleware
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

		// Time allowed for in-flight requests to finish on shutdown
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}

	Store struct {
		// Backend holding the property records: mongo or sqlite
		Driver string `env:"STORE_DRIVER" envDefault:"mongo"`

		MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017/realestate"`
		MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"realestate"`

		SQLitePath string `env:"SQLITE_PATH" envDefault:"database/properties.db"`
	}

	Provider struct {
		// Credential for the text-generation provider. Only checked when an
		// analysis is requested.
		APIKey      string        `env:"OPENAI_API_KEY"`
		BaseURL     string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
		Model       string        `env:"OPENAI_MODEL" envDefault:"gpt-4"`
		MaxTokens   int           `env:"OPENAI_MAX_TOKENS" envDefault:"1000"`
		Temperature float64       `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`
		Timeout     time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
	}
}

// LoadConfig reads an optional .env file and parses the environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=%s", StoreMongo)
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=%s", StoreSQLite)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Provider.MaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be positive, got %d", c.Provider.MaxTokens)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// NewLogger builds the process logger from the Log section.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(c.Log.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Server.Port, ":")
}
