package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// SettlementCache implements ports.SettlementCache using Redis. It is the
// fast-path duplicate check for redelivered settlement events; the settlement
// inbox table remains the durable barrier, so losing a key here is harmless.
type SettlementCache struct {
	client *goredis.Client
	prefix string
}

// NewSettlementCache creates a new Redis-backed settlement dedup cache.
func NewSettlementCache(client *goredis.Client) *SettlementCache {
	return &SettlementCache{
		client: client,
		prefix: "settlement:applied:",
	}
}

// AlreadyApplied reports whether the transaction id was marked applied.
func (c *SettlementCache) AlreadyApplied(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+transactionID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("redis settlement exists: %w", err)
	}
	return n > 0, nil
}

// MarkApplied records the transaction id with a TTL.
func (c *SettlementCache) MarkApplied(ctx context.Context, transactionID uuid.UUID, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+transactionID.String(), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis settlement mark: %w", err)
	}
	return nil
}
