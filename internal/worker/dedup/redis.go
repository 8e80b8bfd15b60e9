package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

// RedisTracker stores one key per processed photo, optionally expiring.
// A sorted set scored by expiry time indexes the keys so Len never scans
// the keyspace.
type RedisTracker struct {
	client *redis.Client
	prefix string
	index  string
	ttl    time.Duration
	now    func() time.Time
}

var _ Tracker = (*RedisTracker)(nil)

// NewRedisTracker creates a tracker scoped to one campaign
func NewRedisTracker(client *redis.Client, keyPrefix, campaign string, ttl time.Duration) *RedisTracker {
	if keyPrefix == "" {
		keyPrefix = "geophoto:dedup"
	}
	return &RedisTracker{
		client: client,
		prefix: keyPrefix + ":" + campaign + ":",
		index:  keyPrefix + ":index:" + campaign,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *RedisTracker) key(photoID string) string {
	return r.prefix + photoID
}

func (r *RedisTracker) Seen(ctx context.Context, photoID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(photoID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Mark keeps the first decision recorded for a photo
func (r *RedisTracker) Mark(ctx context.Context, decision domain.Decision) error {
	var expires float64
	if r.ttl > 0 {
		expires = float64(r.now().Add(r.ttl).Unix())
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, r.key(decision.PhotoID), string(decision.Status), r.ttl)
		pipe.ZAdd(ctx, r.index, redis.Z{Score: expires, Member: decision.PhotoID})
		if r.ttl > 0 {
			pipe.Expire(ctx, r.index, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis mark: %w", err)
	}
	return nil
}

// Len drops expired index members and returns the index size
func (r *RedisTracker) Len(ctx context.Context) (int, error) {
	var card *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if r.ttl > 0 {
			pipe.ZRemRangeByScore(ctx, r.index, "-inf", strconv.FormatInt(r.now().Unix(), 10))
		}
		card = pipe.ZCard(ctx, r.index)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis len: %w", err)
	}
	return int(card.Val()), nil
}

// Close is a no-op; the client is owned by the caller
func (r *RedisTracker) Close() error {
	return nil
}
