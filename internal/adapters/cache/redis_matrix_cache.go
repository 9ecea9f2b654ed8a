package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMatrixCache stores pairwise travel matrices in Redis, keyed by the
// provider's request digest. Matrices for a batch of orders are requested
// repeatedly across relaxation rounds and reruns, so a short TTL saves
// most provider calls without serving stale road data for long.
type RedisMatrixCache struct {
	client *redis.Client
	ttl    time.Duration
}

const defaultMatrixTTL = 6 * time.Hour

func NewRedisMatrixCache(client *redis.Client, ttl time.Duration) *RedisMatrixCache {
	if ttl <= 0 {
		ttl = defaultMatrixTTL
	}
	return &RedisMatrixCache{client: client, ttl: ttl}
}

// GetMatrix returns the cached matrix or nil on a miss.
func (c *RedisMatrixCache) GetMatrix(ctx context.Context, key string) ([][]float64, error) {
	if c.client == nil {
		return nil, errors.New("matrix cache: client is nil")
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get matrix cache: %w", err)
	}

	var matrix [][]float64
	if err := json.Unmarshal(raw, &matrix); err != nil {
		return nil, fmt.Errorf("get matrix cache: decode %q: %w", key, err)
	}
	return matrix, nil
}

func (c *RedisMatrixCache) PutMatrix(ctx context.Context, key string, matrix [][]float64) error {
	if c.client == nil {
		return errors.New("matrix cache: client is nil")
	}
	if len(matrix) == 0 {
		return nil
	}

	raw, err := json.Marshal(matrix)
	if err != nil {
		return fmt.Errorf("insert matrix cache: encode %q: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("insert matrix cache: %w", err)
	}
	return nil
}
