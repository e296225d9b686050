package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisUsageRepo keeps daily usage in one hash per account and UTC day.
type RedisUsageRepo struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisUsageRepo(client *redis.Client) *RedisUsageRepo {
	return &RedisUsageRepo{
		client: client,
		prefix: "risk",
		now:    time.Now,
	}
}

func (r *RedisUsageRepo) GetDailyUsage(ctx context.Context, accountID string) (int, float64, error) {
	vals, err := r.client.HMGet(ctx, r.key(accountID), "orders", "volume").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	var orders int
	var volume float64
	if len(vals) == 2 {
		if s, ok := vals[0].(string); ok {
			_, _ = fmt.Sscan(s, &orders)
		}
		if s, ok := vals[1].(string); ok {
			_, _ = fmt.Sscan(s, &volume)
		}
	}
	return orders, volume, nil
}

func (r *RedisUsageRepo) AddDailyUsage(ctx context.Context, accountID string, orders int, notional float64) error {
	key := r.key(accountID)
	pipe := r.client.TxPipeline()
	if orders != 0 {
		pipe.HIncrBy(ctx, key, "orders", int64(orders))
	}
	if notional != 0 {
		pipe.HIncrByFloat(ctx, key, "volume", notional)
	}
	// Two days covers clock skew around midnight.
	pipe.Expire(ctx, key, 48*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisUsageRepo) key(accountID string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, accountID, r.now().UTC().Format(time.DateOnly))
}
