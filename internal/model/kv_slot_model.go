// FILE: internal/model/kv_slot_model.go
// GORM model for the local cache slots table
package model

import (
	"time"

	"gorm.io/datatypes"
)

// KVSlot holds one owner's value for one key. Value is stored as JSONB.
type KVSlot struct {
	Owner     string         `gorm:"type:varchar(255);primaryKey"`
	Key       string         `gorm:"type:varchar(100);primaryKey"`
	Value     datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (KVSlot) TableName() string {
	return "local_cache_slots"
}
