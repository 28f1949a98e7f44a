package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Validation     ValidationConfig     `mapstructure:"validation"`
	Downstream     DownstreamConfig     `mapstructure:"downstream"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Audit          AuditConfig          `mapstructure:"audit"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ValidationConfig describes the external credential validator and the
// gateway's own account on it. Enabled defaults to false: without it every
// device event is forwarded unvalidated, matching the legacy flow.
type ValidationConfig struct {
	Enabled                bool          `mapstructure:"enabled"`
	BaseURL                string        `mapstructure:"base_url"`
	AuthEndpoint           string        `mapstructure:"auth_endpoint"`
	DeviceEndpoint         string        `mapstructure:"device_endpoint"`
	Username               string        `mapstructure:"username"`
	Password               string        `mapstructure:"password"`
	AuthTimeoutSeconds     time.Duration `mapstructure:"auth_timeout_seconds"`
	ValidateTimeoutSeconds time.Duration `mapstructure:"validate_timeout_seconds"`

	// Fallback device credentials applied when the event payload carries
	// none. A usability convenience for lab inventories, not a security
	// boundary; every use is logged.
	DefaultDeviceUsername string `mapstructure:"default_device_username"`
	DefaultDevicePassword string `mapstructure:"default_device_password"`
}

type DownstreamConfig struct {
	URL            string        `mapstructure:"url"`
	TimeoutSeconds time.Duration `mapstructure:"timeout_seconds"`
	Retry          RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

type DatabaseConfig struct {
	Postgres       PostgresConfig `mapstructure:"postgres"`
	RunMigrations  bool           `mapstructure:"run_migrations"`
	MigrationsPath string         `mapstructure:"migrations_path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type AuditConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool       `mapstructure:"enabled"`
	ServiceName string     `mapstructure:"service_name"`
	OTLP        OTLPConfig `mapstructure:"otlp"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
