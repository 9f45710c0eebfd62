// internal\entity\strategy_entity.go
package entity

import (
	"strings"
	"time"
)

type StrategyType string

const (
	StrategyTypeRetention StrategyType = "Retention"
	StrategyTypeLaunch    StrategyType = "Launch"
	StrategyTypeUpsell    StrategyType = "Upsell"
)

// ParseStrategyType matches case-insensitively; ok is false for anything outside the enum.
func ParseStrategyType(s string) (StrategyType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retention":
		return StrategyTypeRetention, true
	case "launch":
		return StrategyTypeLaunch, true
	case "upsell":
		return StrategyTypeUpsell, true
	}
	return "", false
}

type StrategyStatus string

const (
	StrategyStatusDraft  StrategyStatus = "Draft"
	StrategyStatusActive StrategyStatus = "Active"
)

type StrategyOrigin string

const (
	OriginAIGenerated StrategyOrigin = "AIGenerated"
	OriginFallback    StrategyOrigin = "Fallback"
)

// ActiveMinProgress is the floor applied to Active records.
const ActiveMinProgress = 10

const MetricPlaceholder = "TBD"

type StrategyMetrics struct {
	Reach      string
	Engagement string
	Conversion string
	Revenue    string
}

// DefaultMetrics returns every metric set to the placeholder.
func DefaultMetrics() StrategyMetrics {
	return StrategyMetrics{
		Reach:      MetricPlaceholder,
		Engagement: MetricPlaceholder,
		Conversion: MetricPlaceholder,
		Revenue:    MetricPlaceholder,
	}
}

// DatasetRef is a weak reference to a business dataset; the strategy never owns it.
type DatasetRef struct {
	Id   string
	Name string
	Type string
}

type StrategyRecord struct {
	ClientId       string
	StoreId        string // empty until the remote store acknowledges a persist
	Name           string
	Description    string
	Type           StrategyType
	Status         StrategyStatus
	Progress       int
	TargetAudience string
	Channels       []string
	Metrics        StrategyMetrics
	Origin         StrategyOrigin
	Objectives     string
	Outcomes       string
	Timeline       string
	Budget         string
	DataSource     *DatasetRef
	SavedAt        *time.Time
}

// LifecycleState is derived from the record, never stored.
type LifecycleState string

const (
	StateGenerated   LifecycleState = "GENERATED"
	StatePersisted   LifecycleState = "PERSISTED"
	StateImplemented LifecycleState = "IMPLEMENTED"
	StateDeleted     LifecycleState = "DELETED"
)

func (r StrategyRecord) State() LifecycleState {
	if r.Status == StrategyStatusActive {
		return StateImplemented
	}
	if r.StoreId != "" {
		return StatePersisted
	}
	return StateGenerated
}

func (r StrategyRecord) IsPersisted() bool {
	return r.StoreId != ""
}

// Clone returns a copy that shares no slices or pointers with r.
func (r StrategyRecord) Clone() StrategyRecord {
	out := r
	if r.Channels != nil {
		out.Channels = append([]string(nil), r.Channels...)
	}
	if r.DataSource != nil {
		ds := *r.DataSource
		out.DataSource = &ds
	}
	if r.SavedAt != nil {
		t := *r.SavedAt
		out.SavedAt = &t
	}
	return out
}
