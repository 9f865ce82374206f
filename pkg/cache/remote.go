package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Remote is the shared key-value tier. Implementations must be safe for
// concurrent use. Errors from a Remote are never surfaced to callers of
// Store; the layer degrades to memory-only.
type Remote interface {
	// Get returns the serialized envelope for key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a serialized envelope with the given TTL.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// redisRemote backs the shared tier with a Redis instance.
type redisRemote struct {
	client *redis.Client
}

// NewRedisRemote creates a Redis-backed remote tier.
func NewRedisRemote(client *redis.Client) Remote {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &redisRemote{client: client}
}

func (r *redisRemote) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, err
	}
	return data, nil
}

func (r *redisRemote) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisRemote) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
