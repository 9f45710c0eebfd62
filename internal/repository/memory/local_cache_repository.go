package memory

import (
	"context"

	"market-insight-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// LocalCacheRepository keeps slots in process memory. Slots never expire;
// it backs development runs and tests.
type LocalCacheRepository struct {
	cache *cache.Cache
}

func NewLocalCacheRepository() *LocalCacheRepository {
	return &LocalCacheRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *LocalCacheRepository) Get(_ context.Context, owner, key string) (string, bool, error) {
	if x, found := r.cache.Get(contract.SlotKey(owner, key)); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (r *LocalCacheRepository) Set(_ context.Context, owner, key, value string) error {
	r.cache.Set(contract.SlotKey(owner, key), value, cache.NoExpiration)
	return nil
}

var _ contract.LocalCacheRepository = (*LocalCacheRepository)(nil)
