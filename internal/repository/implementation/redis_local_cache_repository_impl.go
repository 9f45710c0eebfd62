// FILE: internal/repository/implementation/redis_local_cache_repository_impl.go
// Redis-backed local cache slot
package implementation

import (
	"context"
	"errors"
	"fmt"

	"market-insight-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

type RedisLocalCacheRepositoryImpl struct {
	rdb *redis.Client
}

func NewRedisLocalCacheRepository(rdb *redis.Client) contract.LocalCacheRepository {
	return &RedisLocalCacheRepositoryImpl{rdb: rdb}
}

func (r *RedisLocalCacheRepositoryImpl) Get(ctx context.Context, owner, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, contract.SlotKey(owner, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get slot: %w", err)
	}
	return val, true, nil
}

// Set stores without expiry; the slot lives until overwritten.
func (r *RedisLocalCacheRepositoryImpl) Set(ctx context.Context, owner, key, value string) error {
	if err := r.rdb.Set(ctx, contract.SlotKey(owner, key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set slot: %w", err)
	}
	return nil
}
