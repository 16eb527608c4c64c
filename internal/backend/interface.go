package backend

import (
	"context"

	"expensetracker/internal/amqp"
	httpserver "expensetracker/internal/http"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

// CleanupFunc releases what the factory opened.
type CleanupFunc func() error

// BackendResult holds the wired services and the resources behind them.
type BackendResult struct {
	Repo      *storage.SQLiteRepository
	Publisher *amqp.Client // nil when events are evaluated inline
	Monitor   *services.SpendingMonitor
	Deps      httpserver.Deps
	Cleanup   CleanupFunc
}

// Factory builds the backend from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// RevocationType selects where revoked session ids are kept.
type RevocationType string

const (
	MemoryRevocations RevocationType = "memory"
	RedisRevocations  RevocationType = "redis"
)

func (rt RevocationType) String() string {
	return string(rt)
}

func (rt RevocationType) IsValid() bool {
	switch rt {
	case MemoryRevocations, RedisRevocations:
		return true
	default:
		return false
	}
}
