package strategy

import (
	"sort"

	"market-insight-be/internal/entity"
)

type origin int

const (
	fromGenerated origin = iota
	fromRemote
	fromLocal
)

// Free text the user may have just edited: the in-memory copy is freshest,
// then the local cache (written before every remote call), then the store.
var textRank = map[origin]int{fromGenerated: 0, fromLocal: 1, fromRemote: 2}

// Persisted state (status, progress, store id): the store is the durability authority.
var stateRank = map[origin]int{fromRemote: 0, fromGenerated: 1, fromLocal: 2}

type acceptedRecord struct {
	rec       entity.StrategyRecord
	textFrom  origin
	stateFrom origin
	absorbed  bool // folded into accepted[into]
	into      int
}

// Merge folds generated, then remote, then local candidates into one
// collection. A candidate matching an accepted record is folded into it
// instead of being added. Output order is acceptance order; records outside
// the AI strategies view (no inferable origin) and invalid records are dropped.
func Merge(local, remote, generated []entity.StrategyRecord) []entity.StrategyRecord {
	accepted := make([]acceptedRecord, 0, len(generated)+len(remote)+len(local))
	index := newIdentityIndex()
	live := func(i int) int {
		for i >= 0 && accepted[i].absorbed {
			i = accepted[i].into
		}
		return i
	}

	fold := func(candidates []entity.StrategyRecord, from origin) {
		for _, c := range candidates {
			if !InAIView(c) || Validate(c) != nil {
				continue
			}
			c = c.Clone()
			Normalize(&c)

			i, found := index.lookup(c)
			i = live(i)
			if !found {
				accepted = append(accepted, acceptedRecord{rec: c, textFrom: from, stateFrom: from})
				index.add(len(accepted)-1, c)
				continue
			}
			reconcile(&accepted[i], c, from, from)
			// c may tie i to a record accepted under its store id; one store
			// id names one record, so the two become one.
			for _, sid := range []string{c.StoreId, accepted[i].rec.StoreId} {
				j, ok := index.byStore[sid]
				if !ok || sid == "" || live(j) == i {
					continue
				}
				keep, drop := i, live(j)
				if outranks(accepted[drop], accepted[keep], drop < keep) {
					keep, drop = drop, keep
				}
				absorb(&accepted[keep], &accepted[drop], keep)
				index.add(keep, accepted[drop].rec)
				i = keep
			}
			index.add(i, accepted[i].rec)
			index.add(i, c)
		}
	}

	fold(generated, fromGenerated)
	fold(remote, fromRemote)
	fold(local, fromLocal)

	out := make([]entity.StrategyRecord, 0, len(accepted))
	for _, a := range accepted {
		if !a.absorbed {
			out = append(out, a.rec)
		}
	}
	return out
}

// InAIView reports whether rec belongs to the AI strategies view.
func InAIView(rec entity.StrategyRecord) bool {
	return rec.Origin == entity.OriginAIGenerated || rec.Origin == entity.OriginFallback
}

// outranks reports whether a holds more authoritative state than b;
// earlier breaks a tie.
func outranks(a, b acceptedRecord, earlier bool) bool {
	if stateRank[a.stateFrom] != stateRank[b.stateFrom] {
		return stateRank[a.stateFrom] < stateRank[b.stateFrom]
	}
	return earlier
}

// absorb folds src into dst with src's own precedence. dst keeps its client id.
func absorb(dst, src *acceptedRecord, dstIndex int) {
	reconcile(dst, src.rec, src.textFrom, src.stateFrom)
	src.absorbed = true
	src.into = dstIndex
}

func reconcile(a *acceptedRecord, c entity.StrategyRecord, textFrom, stateFrom origin) {
	if textRank[textFrom] < textRank[a.textFrom] {
		a.rec.Name = c.Name
		a.rec.Description = c.Description
		a.rec.Type = c.Type
		a.rec.TargetAudience = c.TargetAudience
		a.rec.Channels = c.Channels
		a.rec.Metrics = c.Metrics
		a.rec.Objectives = c.Objectives
		a.rec.Outcomes = c.Outcomes
		a.rec.Timeline = c.Timeline
		a.rec.Budget = c.Budget
		a.textFrom = textFrom
	}

	if stateRank[stateFrom] < stateRank[a.stateFrom] {
		a.rec.Status = c.Status
		a.rec.Progress = c.Progress
		if c.StoreId != "" {
			a.rec.StoreId = c.StoreId
		}
		a.stateFrom = stateFrom
	}

	// A store id, once known from any source, is kept.
	if a.rec.StoreId == "" && c.StoreId != "" {
		a.rec.StoreId = c.StoreId
	}
	if a.rec.DataSource == nil && c.DataSource != nil {
		a.rec.DataSource = c.DataSource
	}
	if a.rec.Origin == "" {
		a.rec.Origin = c.Origin
	}
	if c.SavedAt != nil && (a.rec.SavedAt == nil || c.SavedAt.After(*a.rec.SavedAt)) {
		a.rec.SavedAt = c.SavedAt
	}

	Normalize(&a.rec)
}

// SortBySavedAt orders records chronologically by savedAt; never-saved
// records go last. The sort is stable and in place.
func SortBySavedAt(records []entity.StrategyRecord, newestFirst bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].SavedAt, records[j].SavedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case newestFirst:
			return a.After(*b)
		default:
			return a.Before(*b)
		}
	})
}
