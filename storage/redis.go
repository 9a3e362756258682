// Package storage provides the Redis-backed remote tier of the
// response cache, shared by all instances of the service.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key is not found.
var ErrNotFound = errors.New("key not found in redis")

// RedisStore implements the remote cache tier using Redis. Entries
// expire server-side after the configured TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-based store and verifies the
// connection with a ping.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

// Get retrieves a value from Redis.
func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with the store's TTL.
func (rs *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return rs.client.Set(ctx, key, value, rs.ttl).Err()
}

// Delete removes a value from Redis.
func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	return rs.client.Del(ctx, key).Err()
}

// Invalidate removes every key containing substr using SCAN, so large
// keyspaces are walked incrementally rather than with KEYS.
func (rs *RedisStore) Invalidate(ctx context.Context, substr string) (int, error) {
	iter := rs.client.Scan(ctx, 0, "*"+substr+"*", 0).Iterator()

	removed := 0
	for iter.Next(ctx) {
		if err := rs.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

// Clear removes all values from Redis.
func (rs *RedisStore) Clear(ctx context.Context) error {
	return rs.client.FlushDB(ctx).Err()
}

// Close closes the Redis connection.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// GetClient returns the underlying Redis client, shared with the
// pub/sub synchronizer.
func (rs *RedisStore) GetClient() *redis.Client {
	return rs.client
}
