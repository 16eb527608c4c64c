package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"expensetracker/internal/amqp"
	"expensetracker/internal/auth"
	"expensetracker/internal/cache"
	"expensetracker/internal/cardvault"
	httpserver "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend opens the database, the optional redis and AMQP
// connections and wires the services on top.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*BackendResult, error) {
		_ = cleanup()
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize SQLite repository: %w", err))
	}
	closers = append(closers, repo.Close)

	vault, err := cardvault.New(config.CardEncryptionKey)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize card vault: %w", err))
	}

	cacheManager := cache.NewManager(f.logger)
	caches := services.NewCaches(config.CacheUsers, config.CacheTTL)
	caches.Register(cacheManager)

	var revocations auth.RevocationStore
	switch config.Revocations {
	case RedisRevocations:
		var client *redis.Client
		client, err = auth.NewRedisClient(ctx, config.RedisAddress, config.RedisPassword, config.RedisDB)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client.Close)
		revocations = auth.NewRedisRevocations(client)
	default:
		mem := auth.NewMemoryRevocations(memoryRevocationSize)
		cacheManager.Register("revocations", mem.Cache())
		revocations = mem
	}

	cacheManager.StartCleanup(cacheCleanupInterval)
	closers = append(closers, func() error {
		cacheManager.Stop()
		return nil
	})

	// A broker that cannot be reached leaves alerts inline.
	var publisher *amqp.Client
	if config.PublishEvents {
		publisher, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, evaluating alerts inline", applog.FieldError, err)
			publisher = nil
		} else {
			closers = append(closers, publisher.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	monitor := services.NewSpendingMonitor(repo, config.SpendingAlertThreshold, caches, f.logger)

	var events services.EventPublisher
	if publisher != nil {
		events = publisher
	}

	deps := httpserver.Deps{
		Accounts:      services.NewAccountService(repo, auth.NewBcrypt(), f.logger),
		Cards:         services.NewCardService(repo, vault, caches, f.logger),
		Expenses:      services.NewExpenseService(repo, events, monitor, caches, f.logger),
		Analytics:     services.NewAnalyticsService(repo, caches, f.logger),
		Notifications: services.NewNotificationService(repo, caches, f.logger),
		Sessions:      auth.NewSessionManager(config.SessionSecret, config.SessionIdleTimeout, config.SessionMaxAge, revocations),
		Storage:       repo,
		Caches:        cacheManager,
		Logger:        f.logger,
	}

	f.logger.Info("Initialized backend",
		"db_path", config.SQLiteDBPath,
		"revocations", config.Revocations.String(),
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Repo:      repo,
		Publisher: publisher,
		Monitor:   monitor,
		Deps:      deps,
		Cleanup:   cleanup,
	}, nil
}
