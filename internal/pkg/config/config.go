package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Storage driver selectors.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config is the full service configuration, populated from the
// environment with the APP_ prefix (APP_PORT, APP_STORAGE_DRIVER, ...).
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"order-service"`
	Env         string `envconfig:"ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`

	StorageDriver  string `envconfig:"STORAGE_DRIVER" default:"memory"`
	PostgresURL    string `envconfig:"POSTGRES_URL"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"file://migrations"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	AuditTopic   string   `envconfig:"AUDIT_TOPIC" default:"audit.orders"`

	StripeAPIKey    string `envconfig:"STRIPE_API_KEY"`
	StripeReturnURL string `envconfig:"STRIPE_RETURN_URL"`

	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`

	PaymentMaxAttempts int           `envconfig:"PAYMENT_MAX_ATTEMPTS" default:"3"`
	PaymentBackoffUnit time.Duration `envconfig:"PAYMENT_BACKOFF_UNIT" default:"1s"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// Load reads configuration from the environment and validates the
// combinations that cannot be expressed with struct tags.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("app", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.StorageDriver)
	}
	if c.StorageDriver == StoragePostgres && c.PostgresURL == "" {
		return fmt.Errorf("config: APP_POSTGRES_URL is required with the postgres driver")
	}
	if c.PaymentMaxAttempts < 1 {
		return fmt.Errorf("config: APP_PAYMENT_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
