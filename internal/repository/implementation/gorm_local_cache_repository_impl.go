// FILE: internal/repository/implementation/gorm_local_cache_repository_impl.go
// Postgres-backed local cache slot
package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"market-insight-be/internal/model"
	"market-insight-be/internal/repository/contract"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormLocalCacheRepositoryImpl struct {
	db *gorm.DB
}

func NewGormLocalCacheRepository(db *gorm.DB) contract.LocalCacheRepository {
	return &GormLocalCacheRepositoryImpl{db: db}
}

func (r *GormLocalCacheRepositoryImpl) Get(ctx context.Context, owner, key string) (string, bool, error) {
	var m model.KVSlot
	err := r.db.WithContext(ctx).Where("owner = ? AND key = ?", owner, key).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	var text string
	if len(m.Value) > 0 && m.Value[0] == '"' && json.Unmarshal(m.Value, &text) == nil {
		return text, true, nil
	}
	return string(m.Value), true, nil
}

// Set upserts the slot. Values that are not valid JSON are stored as a JSON
// string so the jsonb column accepts them; Get unwraps top-level strings. jsonb does not keep formatting, so
// Get returns an equivalent document rather than the bytes written.
func (r *GormLocalCacheRepositoryImpl) Set(ctx context.Context, owner, key, value string) error {
	raw := []byte(value)
	if !json.Valid(raw) {
		quoted, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode slot value: %w", err)
		}
		raw = quoted
	}
	m := model.KVSlot{Owner: owner, Key: key, Value: datatypes.JSON(raw)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&m).Error
}
