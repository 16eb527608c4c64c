package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"expensetracker/internal/cache"
)

// RevocationStore remembers logged-out session ids until they would have expired.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// MemoryRevocations keeps revoked ids in a process-local LRU.
type MemoryRevocations struct {
	entries *cache.LRUCache[struct{}]
}

func NewMemoryRevocations(maxSize int) *MemoryRevocations {
	return &MemoryRevocations{entries: cache.NewLRUCache[struct{}](maxSize, 24*time.Hour)}
}

func (m *MemoryRevocations) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	m.entries.SetWithTTL(sessionID, struct{}{}, ttl)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	_, ok := m.entries.Get(sessionID)
	return ok, nil
}

// Cache exposes the underlying LRU so a cache.Manager can clean it.
func (m *MemoryRevocations) Cache() *cache.LRUCache[struct{}] {
	return m.entries
}

const redisKeyPrefix = "expensetracker:revoked:"

// RedisRevocations shares revocations between server instances.
type RedisRevocations struct {
	client redis.Cmdable
}

func NewRedisRevocations(client redis.Cmdable) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func (r *RedisRevocations) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, redisKeyPrefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set revocation: %w", err)
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists revocation: %w", err)
	}
	return n > 0, nil
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
