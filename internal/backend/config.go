package backend

import (
	"fmt"
	"time"

	"expensetracker/internal/config"
)

const (
	cacheUsers           = 1000
	cacheTTL             = 5 * time.Minute
	cacheCleanupInterval = 10 * time.Minute
	memoryRevocationSize = 10000
)

// Config is the part of the application config the factory needs.
type Config struct {
	SQLiteDBPath string

	SessionSecret      string
	SessionIdleTimeout time.Duration
	SessionMaxAge      time.Duration
	CardEncryptionKey  string

	Revocations   RevocationType
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Publish expense events instead of evaluating alerts inline.
	PublishEvents bool
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string

	SpendingAlertThreshold float64

	CacheUsers int
	CacheTTL   time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	revocations := MemoryRevocations
	if appConfig.RedisAddress != "" {
		revocations = RedisRevocations
	}

	cfg := Config{
		SQLiteDBPath: appConfig.SQLiteDBPath,

		SessionSecret:      appConfig.SessionSecret,
		SessionIdleTimeout: appConfig.SessionIdleTimeout,
		SessionMaxAge:      appConfig.SessionMaxAge,
		CardEncryptionKey:  appConfig.CardEncryptionKey,

		Revocations:   revocations,
		RedisAddress:  appConfig.RedisAddress,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,

		PublishEvents: appConfig.AMQPEnabled(),
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,

		SpendingAlertThreshold: appConfig.SpendingAlertThreshold,

		CacheUsers: cacheUsers,
		CacheTTL:   cacheTTL,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("session secret is required")
	}
	if c.SessionIdleTimeout <= 0 || c.SessionMaxAge < c.SessionIdleTimeout {
		return fmt.Errorf("invalid session lifetimes: idle %v, max age %v", c.SessionIdleTimeout, c.SessionMaxAge)
	}
	if !c.Revocations.IsValid() {
		return fmt.Errorf("invalid revocation store: %s", c.Revocations)
	}
	if c.Revocations == RedisRevocations && c.RedisAddress == "" {
		return fmt.Errorf("redis address is required for the redis revocation store")
	}
	if c.PublishEvents && (c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP url, exchange and queue are required to publish events")
	}
	if c.SpendingAlertThreshold <= 0 || c.SpendingAlertThreshold > 1 {
		return fmt.Errorf("invalid spending alert threshold %v", c.SpendingAlertThreshold)
	}
	return nil
}
