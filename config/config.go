// Package config reads process configuration from the environment, after
// loading an optional .env file.
package config

import (
	"fmt"
	"os"

	"github.com/ridoystarlord/pqorm/utils"
)

// Config holds everything the CLI needs to reach the database.
type Config struct {
	DatabaseURL string
	Driver      string
	Schema      string
	PoolMax     int
	LogLevel    string
	LogFormat   string
	SchemaFile  string
}

// Load reads the configuration. DATABASE_URL is not required here; commands
// that talk to the database check it themselves.
func Load() (*Config, error) {
	utils.LoadEnv()

	poolMax, err := utils.GetenvInt("PQORM_POOL_MAX", 2048)
	if err != nil {
		return nil, fmt.Errorf("PQORM_POOL_MAX: %w", err)
	}
	if poolMax < 0 {
		return nil, fmt.Errorf("PQORM_POOL_MAX must not be negative, got %d", poolMax)
	}

	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Driver:      utils.Getenv("PQORM_DRIVER", "pgx"),
		Schema:      utils.Getenv("PQORM_SCHEMA", "public"),
		PoolMax:     poolMax,
		LogLevel:    utils.Getenv("PQORM_LOG_LEVEL", "info"),
		LogFormat:   utils.Getenv("PQORM_LOG_FORMAT", "text"),
		SchemaFile:  utils.Getenv("PQORM_SCHEMA_FILE", "schema.yaml"),
	}, nil
}
