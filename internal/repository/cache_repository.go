package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
)

// scanBatch bounds how many keys a single UNLINK removes during invalidation.
const scanBatch = 100

// cachedTable wraps a cached value with the time it was written, so a
// fallback read can report how old the copy is.
type cachedTable struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// CacheRepository keeps the last-known-good copy of each fetched table in
// Redis. A nil client behaves as an always-empty cache.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get decodes the table stored under key into dest.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("read cached table %s: %w", key, err)
	}

	var entry cachedTable
	if err := json.Unmarshal(raw, &entry); err != nil {
		return fmt.Errorf("decode cached table %s: %w", key, err)
	}
	if err := json.Unmarshal(entry.Payload, dest); err != nil {
		return fmt.Errorf("decode cached table %s payload: %w", key, err)
	}

	r.logger.Debug("cached table read", zap.String("key", key), zap.Duration("age", time.Since(entry.StoredAt)))
	return nil
}

// Set stores value under key for ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode table %s: %w", key, err)
	}
	raw, err := json.Marshal(cachedTable{StoredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode table %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("write cached table %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern unlinks every key matching pattern in batches.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("unlink cached tables: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cached tables %s: %w", pattern, err)
	}
	return flush()
}

// Close releases the Redis connection.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
