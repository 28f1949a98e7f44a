package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateValidation(cfg.Validation); err != nil {
		errors = append(errors, err)
	}

	if err := validateDownstream(cfg.Downstream); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateAudit(cfg.Audit); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateValidation(cfg ValidationConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.BaseURL == "" {
		return &ValidationError{
			Field:   "validation.base_url",
			Message: "validator base URL is required when validation is enabled",
		}
	}

	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return &ValidationError{
			Field:   "validation.base_url",
			Message: fmt.Sprintf("base URL must start with http:// or https://, got %s", cfg.BaseURL),
		}
	}

	if cfg.Username == "" || cfg.Password == "" {
		return &ValidationError{
			Field:   "validation.username",
			Message: "validator credentials are required when validation is enabled",
		}
	}

	if cfg.AuthTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "validation.auth_timeout_seconds",
			Message: "auth timeout must be positive",
		}
	}

	if cfg.ValidateTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "validation.validate_timeout_seconds",
			Message: "validate timeout must be positive",
		}
	}

	if cfg.ValidateTimeoutSeconds < cfg.AuthTimeoutSeconds {
		return &ValidationError{
			Field:   "validation.validate_timeout_seconds",
			Message: "validate timeout must not be shorter than the auth timeout",
		}
	}

	return nil
}

func validateDownstream(cfg DownstreamConfig) error {
	if cfg.URL == "" {
		return &ValidationError{
			Field:   "downstream.url",
			Message: "downstream webhook URL is required",
		}
	}

	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return &ValidationError{
			Field:   "downstream.url",
			Message: fmt.Sprintf("URL must start with http:// or https://, got %s", cfg.URL),
		}
	}

	if cfg.TimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "downstream.timeout_seconds",
			Message: "timeout must be positive",
		}
	}

	if cfg.Retry.MaxAttempts < 1 {
		return &ValidationError{
			Field:   "downstream.retry.max_attempts",
			Message: "max_attempts must be at least 1",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "downstream.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "downstream.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host == "" && cfg.Postgres.Port == 0 {
		return nil // decision store falls back to the in-memory ring
	}

	if cfg.Postgres.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Postgres.Port < 1 || cfg.Postgres.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Postgres.Port),
		}
	}

	if cfg.Postgres.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.Postgres.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.Postgres.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.Postgres.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.Postgres.SSLMode),
		}
	}

	return nil
}

func validateAudit(cfg AuditConfig) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil // decision stream is optional
	}

	for i, broker := range cfg.Kafka.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("audit.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Kafka.Topic == "" {
		return &ValidationError{
			Field:   "audit.kafka.topic",
			Message: "Kafka topic is required when brokers are configured",
		}
	}

	return nil
}
