package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Service configuration constants
const (
	ServiceName    = "allocation-service"
	ServiceVersion = "0.1.0"
)

// Kafka configuration constants
const (
	BatchCreatedTopic = "BatchCreated"
	OrderCreatedTopic = "OrderCreated"
	AllocatedTopic    = "Allocated"
	OutOfStockTopic   = "OutOfStock"
	BatchTimeout      = 10 * time.Millisecond
	BatchSize         = 100
)

// OpenTelemetry configuration constants
const (
	LogsPath       = "/otlp/v1/logs"
	TracesPath     = "/otlp/v1/traces"
	MetricsPath    = "/otlp/v1/metrics"
	ExportTimeout  = 30 * time.Second
	MaxQueueSize   = 2048
	MetricInterval = 15 * time.Second
)

// Storage drivers
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config holds environment-specific configuration
type Config struct {
	KafkaBroker  string `env:"KAFKA_BROKER" envDefault:"localhost:9092"`
	KafkaGroupID string `env:"KAFKA_GROUP_ID" envDefault:"allocation-service-group"`

	// OTel export is disabled when the endpoint is empty.
	OtelEndpoint   string `env:"OTEL_ENDPOINT"`
	OtelAuthHeader string `env:"OTEL_AUTH_HEADER"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"allocation.db"`
}

// OtelEnabled reports whether telemetry should be exported.
func (c *Config) OtelEnabled() bool {
	return c.OtelEndpoint != ""
}

// LoadConfig loads configuration from an optional .env file and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.KafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER cannot be empty")
	}
	switch c.StorageDriver {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.OtelEndpoint != "" && c.OtelAuthHeader == "" {
		return fmt.Errorf("OTEL_AUTH_HEADER is required when OTEL_ENDPOINT is set")
	}
	return nil
}
