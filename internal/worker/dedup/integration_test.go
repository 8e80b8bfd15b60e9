package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

func TestRedisTracker_Key(t *testing.T) {
	tr := NewRedisTracker(nil, "", "TreeHacks 2025", time.Hour)
	assert.Equal(t, "geophoto:dedup:TreeHacks 2025:p1", tr.key("p1"))

	assert.Equal(t, "geophoto:dedup:index:TreeHacks 2025", tr.index)

	custom := NewRedisTracker(nil, "svc", "demo", 0)
	assert.Equal(t, "svc:demo:42", custom.key("42"))
	assert.Equal(t, "svc:index:demo", custom.index)
}

// Runs against a live Redis when TEST_REDIS_ADDR is set
func TestRedisTracker_Integration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	campaign := fmt.Sprintf("it-%d", time.Now().UnixNano())
	tr := NewRedisTracker(client, "geophoto:test", campaign, time.Minute)

	seen, err := tr.Seen(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, tr.Mark(ctx, domain.Decision{PhotoID: "p1", Status: domain.StatusAccepted}))
	require.NoError(t, tr.Mark(ctx, domain.Decision{PhotoID: "p2", Status: domain.StatusRejected}))

	seen, err = tr.Seen(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, seen)

	// a second mark keeps the first decision and is counted once
	require.NoError(t, tr.Mark(ctx, domain.Decision{PhotoID: "p1", Status: domain.StatusRejected}))
	status, err := client.Get(ctx, tr.key("p1")).Result()
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusAccepted), status)

	n, err := tr.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ttl, err := client.TTL(ctx, tr.key("p1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// members past their expiry are pruned by Len
	tr.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	n, err = tr.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	t.Cleanup(func() {
		_ = client.Del(context.Background(), tr.key("p1"), tr.key("p2"), tr.index).Err()
	})
}

// Runs against a live Redis when TEST_REDIS_ADDR is set
func TestRedisTracker_LenWithoutTTL(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	tr := NewRedisTracker(client, "geophoto:test", fmt.Sprintf("it-%d", time.Now().UnixNano()), 0)
	t.Cleanup(func() {
		_ = client.Del(context.Background(), tr.key("a"), tr.key("b"), tr.key("c"), tr.index).Err()
	})

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, tr.Mark(ctx, domain.Decision{PhotoID: id, Status: domain.StatusAccepted}))
	}

	tr.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	n, err := tr.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	keys, err := client.Keys(ctx, tr.prefix+"*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

// Runs against a live PostgreSQL when TEST_DATABASE_DSN is set
func TestPostgresTracker_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	campaign := fmt.Sprintf("it-%d", time.Now().UnixNano())
	tr := NewPostgresTracker(db, campaign, slog.Default())
	require.NoError(t, tr.EnsureSchema(ctx))
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM photo_decisions WHERE campaign = $1`, campaign)
	})

	seen, err := tr.Seen(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, seen)

	decision := domain.Decision{PhotoID: "p1", Status: domain.StatusAccepted, PhotoURL: "https://cdn.example.test/p1.jpg"}
	require.NoError(t, tr.Mark(ctx, decision))
	require.NoError(t, tr.Mark(ctx, decision), "second mark is a no-op")

	seen, err = tr.Seen(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, seen)

	n, err := tr.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
