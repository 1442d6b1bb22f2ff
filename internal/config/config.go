// Package config loads and validates the pipeline settings from the
// environment (populated by the .env file in main).
package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds all settings for the application.
type Config struct {
	PostgresHost     string `envconfig:"POSTGRES_HOST" required:"true"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresDB       string `envconfig:"POSTGRES_DB" required:"true"`
	PostgresUser     string `envconfig:"POSTGRES_USER" required:"true"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" required:"true"`

	MinioEndpoint        string `envconfig:"MINIO_ENDPOINT" required:"true"`
	MinioRootUser        string `envconfig:"MINIO_ROOT_USER" required:"true"`
	MinioRootPassword    string `envconfig:"MINIO_ROOT_PASSWORD" required:"true"`
	MinioRawBucket       string `envconfig:"MINIO_RAW_BUCKET" default:"raw-data"`
	MinioProcessedBucket string `envconfig:"MINIO_PROCESSED_BUCKET" default:"processed-data"`

	GeneratorNumRows int   `envconfig:"GENERATOR_NUM_ROWS" default:"500"`
	GeneratorSeed    int64 `envconfig:"GENERATOR_SEED" default:"42"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "reading environment")
	}

	if !strings.HasPrefix(cfg.MinioEndpoint, "http://") && !strings.HasPrefix(cfg.MinioEndpoint, "https://") {
		return nil, errors.New("MINIO_ENDPOINT must start with http:// or https://")
	}
	cfg.MinioEndpoint = strings.TrimRight(cfg.MinioEndpoint, "/")

	return &cfg, nil
}

// PostgresDSN builds the keyword/value connection string for the sink.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresUser, c.PostgresPassword)
}
