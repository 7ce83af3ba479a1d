package config

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"kolabdok/pkg/logger"
)

type Database struct {
	User     string `env:"DB_USER, required"`
	Password string `env:"DB_PASSWORD, required"`
	Host     string `env:"DB_HOST, default=localhost"`
	Port     string `env:"DB_PORT, default=5432"`
	Name     string `env:"DB_NAME, default=kolabdok"`
	SSLMode  string `env:"DB_SSLMODE, default=require"`
}

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR, default=:8080"`
	JWTSecret  string `env:"JWT_SECRET, required"`
	Database   Database
}

// Load reads a .env file if present and fills the config from the
// environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
