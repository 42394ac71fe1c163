package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a Redis server.
type RedisStore struct {
	rdb *redis.Client
}

// Ensure RedisStore implements the Store interface.
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store and verifies connectivity.
// The url uses the standard redis:// scheme, e.g. "redis://localhost:6379/0".
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// NewRedisStoreFromClient wraps an existing redis client.
// This is useful for testing with a mock or shared client.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get retrieves a value. A missing key is a miss, not an error.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, true, nil
}

// Set stores a value with the given TTL (0 = no expiry).
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// DeletePrefix removes all keys with the given prefix and returns how
// many were deleted. It scans incrementally to avoid blocking the server
// on large keyspaces.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	var deleted int
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			n, err := s.rdb.Del(ctx, batch...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis del batch: %w", err)
			}
			deleted += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan %q: %w", prefix, err)
	}

	if len(batch) > 0 {
		n, err := s.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis del batch: %w", err)
		}
		deleted += int(n)
	}

	return deleted, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
