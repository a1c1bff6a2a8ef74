package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/nowplaying/internal/shared"
)

// RedisKV implements [KV] on Redis string keys prefixed with the namespace.
type RedisKV struct {
	client    redis.Cmdable
	namespace string
}

// NewRedisKV creates a [RedisKV] for namespace.
func NewRedisKV(client redis.Cmdable, namespace string) *RedisKV {
	return &RedisKV{client: client, namespace: namespace}
}

// NewRedisClient parses a redis:// URL and returns a connected client.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis url: %v", shared.ErrInvalidConfig, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func (r *RedisKV) key(key string) string {
	return r.namespace + ":" + key
}

// Get retrieves the value stored under key.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, r.key(key))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.key(key), err)
	}
	return data, nil
}

// Set stores value under key without expiration.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", r.key(key), err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.key(key), err)
	}
	return nil
}
