package strategy

import "market-insight-be/internal/entity"

// SameRecord reports whether a and b denote one strategy. A record born
// locally knows only its client id; the same record fetched back from the
// store is also known by its store id. Either key matching is enough.
func SameRecord(a, b entity.StrategyRecord) bool {
	if a.ClientId != "" && a.ClientId == b.ClientId {
		return true
	}
	return a.StoreId != "" && a.StoreId == b.StoreId
}

// identityIndex finds accepted records by either identity key.
type identityIndex struct {
	byClient map[string]int
	byStore  map[string]int
}

func newIdentityIndex() *identityIndex {
	return &identityIndex{
		byClient: make(map[string]int),
		byStore:  make(map[string]int),
	}
}

func (ix *identityIndex) lookup(rec entity.StrategyRecord) (int, bool) {
	if i, ok := ix.byClient[rec.ClientId]; ok && rec.ClientId != "" {
		return i, true
	}
	if i, ok := ix.byStore[rec.StoreId]; ok && rec.StoreId != "" {
		return i, true
	}
	return -1, false
}

func (ix *identityIndex) add(i int, rec entity.StrategyRecord) {
	if rec.ClientId != "" {
		ix.byClient[rec.ClientId] = i
	}
	if rec.StoreId != "" {
		ix.byStore[rec.StoreId] = i
	}
}
