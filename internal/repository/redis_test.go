package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisUsageRepo(t *testing.T) {
	mr, client := newMiniRedis(t)
	repo := NewRedisUsageRepo(client)
	repo.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	orders, vol, err := repo.GetDailyUsage(ctx, "acct-1")
	require.NoError(t, err)
	assert.Zero(t, orders)
	assert.Zero(t, vol)

	require.NoError(t, repo.AddDailyUsage(ctx, "acct-1", 1, 250.5))
	require.NoError(t, repo.AddDailyUsage(ctx, "acct-1", 1, 100))

	orders, vol, err = repo.GetDailyUsage(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 2, orders)
	assert.InDelta(t, 350.5, vol, 1e-9)

	assert.True(t, mr.Exists("risk:acct-1:2024-05-01"))
	assert.Equal(t, 48*time.Hour, mr.TTL("risk:acct-1:2024-05-01"))
}

func TestRedisAuditRepo(t *testing.T) {
	_, client := newMiniRedis(t)
	repo := NewRedisAuditRepo(client, "audit", 3)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, acct := range []string{"a", "b", "a", "a"} {
		require.NoError(t, repo.Insert(ctx, &model.AuditLog{
			ID:        string(rune('1' + i)),
			AccountID: acct,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.List(ctx, "", 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3, "list is capped")
	assert.Equal(t, "4", all[0].ID)

	onlyA, err := repo.List(ctx, "a", 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)

	from := base.Add(3 * time.Minute)
	recent, err := repo.List(ctx, "", 10, &from, nil)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "4", recent[0].ID)
}

func TestRedisIdempotencyStore(t *testing.T) {
	_, client := newMiniRedis(t)
	store := NewRedisIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	rec, hit := store.GetOrLock(ctx, "acct-1:key")
	assert.Nil(t, rec)
	assert.False(t, hit)

	rec, hit = store.GetOrLock(ctx, "acct-1:key")
	require.True(t, hit)
	assert.True(t, rec.Processing)

	store.Save(ctx, "acct-1:key", 200, []byte(`{"success":true}`))
	rec, hit = store.GetOrLock(ctx, "acct-1:key")
	require.True(t, hit)
	assert.False(t, rec.Processing)
	assert.Equal(t, 200, rec.Status)
	assert.JSONEq(t, `{"success":true}`, string(rec.Body))

	store.Unlock(ctx, "acct-1:key")
	_, hit = store.GetOrLock(ctx, "acct-1:key")
	assert.False(t, hit)
}
