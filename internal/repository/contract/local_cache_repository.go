// FILE: internal/repository/contract/local_cache_repository.go
// Repository interface for the per-user local cache slot
package contract

import "context"

// StrategySlotKey is the slot holding the whole canonical strategy collection.
const StrategySlotKey = "aiMarketingStrategies"

// LocalCacheRepository is a durable key-value slot per owner. Writes replace
// the value whole; there are no partial updates.
type LocalCacheRepository interface {
	Get(ctx context.Context, owner, key string) (value string, found bool, err error)
	Set(ctx context.Context, owner, key, value string) error
}

// SlotKey namespaces key by owner so users never share a slot.
func SlotKey(owner, key string) string {
	return owner + ":" + key
}
