package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-training/oauth2-implicit/pkg/core"
	"github.com/redis/rueidis"
)

const scanBatch = 100

// RedisStore implements the core.TokenStore interface using Redis via rueidis.
// Keys are namespaced with core.StoragePrefix so the database can be shared.
type RedisStore struct {
	client rueidis.Client
}

// NewRedisStore creates a new instance of RedisStore with the provided rueidis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

// RedisOptions contains configuration for Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStoreFromOptions creates a new RedisStore with simplified options.
func NewRedisStoreFromOptions(opts RedisOptions) (*RedisStore, error) {
	clientOpts := rueidis.ClientOption{
		InitAddress: []string{opts.Addr},
		Password:    opts.Password,
		SelectDB:    opts.DB,
	}
	return NewRedisStoreFromClientOption(clientOpts)
}

// NewRedisStoreFromClientOption creates a new RedisStore with full rueidis client options.
func NewRedisStoreFromClientOption(opts rueidis.ClientOption) (*RedisStore, error) {
	client, err := rueidis.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() error {
	r.client.Close()
	return nil
}

// Set stores a value in Redis without expiry; token freshness is decided by the caller.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return core.ErrEmptyKey
	}

	cmd := r.client.B().Set().Key(prefixed(key)).Value(value).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save token to redis: %w", err)
	}

	return nil
}

// Get retrieves a value from Redis.
// It returns core.ErrNotFound if the key does not exist.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", core.ErrEmptyKey
	}

	cmd := r.client.B().Get().Key(prefixed(key)).Build()
	result, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("failed to get token from redis: %w", err)
	}

	return result, nil
}

// Remove deletes a key from Redis. Removing a missing key is not an error.
func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return core.ErrEmptyKey
	}

	cmd := r.client.B().Del().Key(prefixed(key)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete token from redis: %w", err)
	}

	return nil
}

// Keys returns every key under the storage prefix, without the prefix, in sorted order.
// SCAN may report a key twice, so the result is deduplicated.
func (r *RedisStore) Keys(ctx context.Context) ([]string, error) {
	raw, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if key, ok := unprefixed(k); ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

// Clear deletes every key under the storage prefix in a single DEL.
func (r *RedisStore) Clear(ctx context.Context) error {
	raw, err := r.scan(ctx)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	cmd := r.client.B().Del().Key(raw...).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to clear tokens from redis: %w", err)
	}
	return nil
}

func (r *RedisStore) scan(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		cmd := r.client.B().Scan().Cursor(cursor).Match(core.StoragePrefix + "*").Count(scanBatch).Build()
		entry, err := r.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan tokens in redis: %w", err)
		}
		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}
