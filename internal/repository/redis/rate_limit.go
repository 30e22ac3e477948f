package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dinecircle/authz-service/internal/core/port"
)

const defaultKeyPrefix = "dinecircle:rate-limit"

// RateLimitStore persists sliding-window attempts in Redis sorted sets.
type RateLimitStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRateLimitStore constructs a store using the provided Redis client.
func NewRateLimitStore(client *redis.Client) *RateLimitStore {
	return &RateLimitStore{client: client, keyPrefix: defaultKeyPrefix}
}

// WithKeyPrefix overrides the default key namespace.
func (s *RateLimitStore) WithKeyPrefix(prefix string) *RateLimitStore {
	if prefix != "" {
		s.keyPrefix = prefix
	}
	return s
}

// Take trims expired attempts, counts the remainder, and records the new
// attempt when it fits. Denied attempts are not recorded, so a rejected
// caller does not extend their own penalty.
func (s *RateLimitStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (port.RateLimitDecision, error) {
	if limit <= 0 || window <= 0 {
		return port.RateLimitDecision{Allowed: true}, nil
	}

	storageKey := fmt.Sprintf("%s:%s", s.keyPrefix, key)
	threshold := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, storageKey, "-inf", threshold)
	countCmd := pipe.ZCard(ctx, storageKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, storageKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis rate limit pipeline: %w", err)
	}

	count := int(countCmd.Val())

	if count >= limit {
		retryAfter := window
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			resetAt := time.Unix(0, int64(oldest[0].Score)).Add(window)
			retryAfter = resetAt.Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return port.RateLimitDecision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	member := redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()}
	record := s.client.TxPipeline()
	record.ZAdd(ctx, storageKey, member)
	record.Expire(ctx, storageKey, window)
	if _, err := record.Exec(ctx); err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis rate limit record: %w", err)
	}

	return port.RateLimitDecision{Allowed: true, Remaining: limit - count - 1}, nil
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
