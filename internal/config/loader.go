package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 5002)
	viper.SetDefault("server.read_timeout_seconds", "15s")
	viper.SetDefault("server.write_timeout_seconds", "90s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("validation.enabled", false)
	viper.SetDefault("validation.auth_endpoint", "/api/auth/signin")
	viper.SetDefault("validation.device_endpoint", "/device")
	viper.SetDefault("validation.auth_timeout_seconds", "10s")
	viper.SetDefault("validation.validate_timeout_seconds", "60s")

	viper.SetDefault("downstream.timeout_seconds", "30s")
	viper.SetDefault("downstream.retry.max_attempts", 3)
	viper.SetDefault("downstream.retry.initial_interval", "1s")
	viper.SetDefault("downstream.retry.max_interval", "10s")
	viper.SetDefault("downstream.retry.multiplier", 2.0)

	viper.SetDefault("database.migrations_path", "migrations")
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("validation.enabled", "VALIDATION_ENABLED")
	viper.BindEnv("validation.base_url", "VALIDATOR_BASE_URL")
	viper.BindEnv("validation.auth_endpoint", "AUTH_ENDPOINT")
	viper.BindEnv("validation.device_endpoint", "DEVICE_ENDPOINT")
	viper.BindEnv("validation.username", "VALIDATOR_USERNAME")
	viper.BindEnv("validation.password", "VALIDATOR_PASSWORD")
	viper.BindEnv("validation.auth_timeout_seconds", "VALIDATOR_AUTH_TIMEOUT_SECONDS")
	viper.BindEnv("validation.validate_timeout_seconds", "VALIDATOR_VALIDATE_TIMEOUT_SECONDS")
	viper.BindEnv("validation.default_device_username", "DEFAULT_DEVICE_USERNAME")
	viper.BindEnv("validation.default_device_password", "DEFAULT_DEVICE_PASSWORD")

	viper.BindEnv("downstream.url", "DOWNSTREAM_URL")
	viper.BindEnv("downstream.timeout_seconds", "DOWNSTREAM_TIMEOUT_SECONDS")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")
	viper.BindEnv("database.run_migrations", "DATABASE_RUN_MIGRATIONS")
	viper.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	viper.BindEnv("audit.kafka.brokers", "AUDIT_KAFKA_BROKERS")
	viper.BindEnv("audit.kafka.topic", "AUDIT_KAFKA_TOPIC")

	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("AUDIT_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Audit.Kafka.Brokers = brokers
		}
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
