package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var configLogger = slog.With("component", "config")

// Config - настройки процесса, читаются из окружения
type Config struct {
	HTTPAddr        string        `env:"SCRIBE_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr        string        `env:"SCRIBE_GRPC_ADDR" envDefault:":9090"`
	DBDriver        string        `env:"SCRIBE_DB_DRIVER" envDefault:"sqlite"`
	DBConn          string        `env:"SCRIBE_DB_CONN" envDefault:"scribe.db"`
	SeedRooms       []string      `env:"SCRIBE_SEED_ROOMS" envDefault:"welcome,random" envSeparator:","`
	DefaultRoom     string        `env:"SCRIBE_DEFAULT_ROOM" envDefault:"welcome"`
	LoadConcurrency int           `env:"SCRIBE_LOAD_CONCURRENCY" envDefault:"8"`
	ShutdownTimeout time.Duration `env:"SCRIBE_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	LogLevel        slog.Level    `env:"SCRIBE_LOG_LEVEL" envDefault:"info"`
}

// Load подгружает .env файлы (если есть) и разбирает окружение.
// Без аргументов читается ".env" в рабочей директории.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		configLogger.Warn("File .env not found, using system environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("SCRIBE_DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.DBConn == "" {
		return errors.New("SCRIBE_DB_CONN is required")
	}
	if c.LoadConcurrency < 1 {
		return fmt.Errorf("SCRIBE_LOAD_CONCURRENCY must be positive, got %d", c.LoadConcurrency)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SCRIBE_SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}
