package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenStore records processed delivery IDs so redelivered events are dropped.
type SeenStore interface {
	// MarkSeen records the delivery and reports whether it was already seen.
	MarkSeen(ctx context.Context, deliveryID string) (bool, error)
	// Forget releases a delivery ID after a failed handling attempt, so the
	// sender's redelivery is processed rather than dropped as a duplicate.
	Forget(ctx context.Context, deliveryID string) error
}

// RedisSeenStore implements SeenStore with SETNX and a TTL slightly beyond
// the replay window; entries older than the window are rejected by the
// timestamp check before they reach this store.
type RedisSeenStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSeenStore(redisURL string, window time.Duration) (*RedisSeenStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisSeenStoreWithClient(client, window), nil
}

// NewRedisSeenStoreWithClient creates a store from an existing Redis client.
func NewRedisSeenStoreWithClient(client *redis.Client, window time.Duration) *RedisSeenStore {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &RedisSeenStore{
		client: client,
		prefix: "webhook:delivery:",
		ttl:    2 * window,
	}
}

func (s *RedisSeenStore) MarkSeen(ctx context.Context, deliveryID string) (bool, error) {
	fresh, err := s.client.SetNX(ctx, s.prefix+deliveryID, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark delivery seen: %w", err)
	}
	return !fresh, nil
}

func (s *RedisSeenStore) Forget(ctx context.Context, deliveryID string) error {
	if err := s.client.Del(ctx, s.prefix+deliveryID).Err(); err != nil {
		return fmt.Errorf("forget delivery: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisSeenStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisSeenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
