package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceCache keeps a short-lived copy of child balances in redis so
// the balance read endpoint does not hit postgres on every poll.
// Postgres stays the source of truth; the cache is dropped whenever
// the ledger commits a mutation.
type BalanceCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewBalanceCache(rdb *redis.Client, logger *zap.Logger) *BalanceCache {
	return &BalanceCache{
		rdb:    rdb,
		ttl:    30 * time.Second,
		logger: logger,
	}
}

func key(childID int64) string {
	return fmt.Sprintf("child:balance:%d", childID)
}

// Get returns the cached balance and whether it was present. Cache
// failures degrade to a miss; the caller falls through to the database.
func (c *BalanceCache) Get(ctx context.Context, childID int64) (decimal.Decimal, bool) {
	val, err := c.rdb.Get(ctx, key(childID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("balance cache read failed", zap.Int64("child_id", childID), zap.Error(err))
		}
		return decimal.Zero, false
	}
	bal, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false
	}
	return bal, true
}

func (c *BalanceCache) Set(ctx context.Context, childID int64, balance decimal.Decimal) {
	if err := c.rdb.Set(ctx, key(childID), balance.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("balance cache write failed", zap.Int64("child_id", childID), zap.Error(err))
	}
}

// Invalidate drops the cached balance after a committed mutation.
func (c *BalanceCache) Invalidate(ctx context.Context, childIDs ...int64) {
	keys := make([]string, len(childIDs))
	for i, id := range childIDs {
		keys[i] = key(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("balance cache invalidation failed", zap.Error(err))
	}
}
