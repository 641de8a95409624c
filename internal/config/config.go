// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// server settings, database connections, payment providers, message queues, and
// the reconciliation sweeps.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration (e.g., HTTP server, databases,
// payment providers, sweeps) and is validated during application startup.
type Config struct {
	Application   ApplicationConfig
	Logging       LoggingConfig
	Server        ServerConfig
	Postgres      PostgresConfig
	MongoDB       MongoDBConfig
	Kafka         KafkaConfig
	Providers     ProvidersConfig
	Settlement    SettlementConfig
	Verify        VerifyConfig
	Payout        PayoutConfig
	Reminders     RemindersConfig
	Outbox        OutboxConfig
	WorkerPool    WorkerPoolConfig
	Notifications NotificationsConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the webhook audit archive
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains Kafka configuration for the ledger event stream
type KafkaConfig struct {
	Brokers           string
	LedgerEventsTopic string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	MaxWait           time.Duration
	DLQTopic          string // Topic for Dead Letter Queue
}

// ProviderConfig contains credentials and endpoints for one payment provider
type ProviderConfig struct {
	BaseURL       string
	SecretKey     string        // API key, also the webhook HMAC shared secret
	Timeout       time.Duration // Bound on every outbound provider call
	WebhookMaxAge time.Duration // Freshness window for signed webhook timestamps
}

// ProvidersConfig groups the configured payment providers
type ProvidersConfig struct {
	Paystack ProviderConfig
	Eganow   ProviderConfig
}

// SettlementConfig contains the settlement promotion sweep configuration.
// The settlement delay itself lives in platform settings (DB), not here.
type SettlementConfig struct {
	SweepInterval time.Duration
	BatchSize     int
}

// VerifyConfig contains the pending-transaction verification sweep configuration
type VerifyConfig struct {
	SweepInterval time.Duration
	GracePeriod   time.Duration // Skip charges younger than this; webhook may still arrive
	MaxPendingAge time.Duration // Auto-fail anything pending longer than this
	BatchSize     int
}

// PayoutConfig contains payout verification retry configuration
type PayoutConfig struct {
	VerifyAttempts int           // Provider status re-checks before trusting the webhook body
	VerifyBackoff  time.Duration // Fixed delay between re-checks
}

// RemindersConfig contains the daily reminder sweep configuration
type RemindersConfig struct {
	SweepInterval time.Duration
	DormantAfter  time.Duration // Open jar with no contributions for this long gets a nudge
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of publish attempts for outbox messages
}

// WorkerPoolConfig contains worker pool configuration for the verification sweep
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// NotificationsConfig contains push notification configuration
type NotificationsConfig struct {
	Enabled         bool
	CredentialsFile string // Firebase service account credentials
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.LedgerEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_LEDGER_EVENTS_TOPIC is required")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate provider config
	if c.Providers.Paystack.SecretKey == "" {
		validationErrors = append(validationErrors, "PAYSTACK_SECRET_KEY is required")
	}
	if c.Providers.Paystack.Timeout <= 0 {
		validationErrors = append(validationErrors, "PAYSTACK_TIMEOUT must be greater than 0")
	}
	if c.Providers.Eganow.SecretKey == "" {
		validationErrors = append(validationErrors, "EGANOW_SECRET_KEY is required")
	}
	if c.Providers.Eganow.Timeout <= 0 {
		validationErrors = append(validationErrors, "EGANOW_TIMEOUT must be greater than 0")
	}

	// Validate sweep config
	if c.Settlement.SweepInterval <= 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_SWEEP_INTERVAL must be greater than 0")
	}
	if c.Settlement.BatchSize <= 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_BATCH_SIZE must be greater than 0")
	}
	if c.Verify.SweepInterval <= 0 {
		validationErrors = append(validationErrors, "VERIFY_SWEEP_INTERVAL must be greater than 0")
	}
	if c.Verify.GracePeriod <= 0 {
		validationErrors = append(validationErrors, "VERIFY_GRACE_PERIOD must be greater than 0")
	}
	if c.Verify.MaxPendingAge <= c.Verify.GracePeriod {
		validationErrors = append(validationErrors, "VERIFY_MAX_PENDING_AGE must be greater than VERIFY_GRACE_PERIOD")
	}
	if c.Verify.BatchSize <= 0 {
		validationErrors = append(validationErrors, "VERIFY_BATCH_SIZE must be greater than 0")
	}
	if c.Payout.VerifyAttempts <= 0 {
		validationErrors = append(validationErrors, "PAYOUT_VERIFY_ATTEMPTS must be greater than 0")
	}
	if c.Payout.VerifyBackoff <= 0 {
		validationErrors = append(validationErrors, "PAYOUT_VERIFY_BACKOFF must be greater than 0")
	}
	if c.Reminders.SweepInterval <= 0 {
		validationErrors = append(validationErrors, "REMINDERS_SWEEP_INTERVAL must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if c.Notifications.Enabled && c.Notifications.CredentialsFile == "" {
		validationErrors = append(validationErrors, "FCM_CREDENTIALS_FILE is required when notifications are enabled")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
