// Package config provides configuration parsing and validation for the
// monitoring ingestion service.
package config

import (
	"fmt"
	"time"
)

// Config holds all configuration parameters for the service.
type Config struct {
	HTTPPort              string
	KafkaBrokers          string
	NotificationJobsTopic string
	PostgresDSN           string
	RedisAddr             string
	PluginEndpoint        string
	PluginTimeout         time.Duration
	RateLimitRPS          float64
	RateLimitBurst        int
	DedupDisabled         bool
}

// Validate checks that all required configuration fields are set and have valid values.
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("http-port cannot be empty")
	}
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka-brokers cannot be empty")
	}
	if c.NotificationJobsTopic == "" {
		return fmt.Errorf("notification-jobs-topic cannot be empty")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres-dsn cannot be empty")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("redis-addr cannot be empty")
	}
	if c.PluginEndpoint == "" {
		return fmt.Errorf("plugin-endpoint cannot be empty")
	}
	if c.PluginTimeout <= 0 {
		return fmt.Errorf("plugin-timeout must be > 0")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate-limit-rps cannot be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate-limit-burst must be > 0 when rate limiting is enabled")
	}
	return nil
}
