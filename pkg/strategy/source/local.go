package source

import (
	"context"
	"fmt"

	"market-insight-be/internal/entity"
	"market-insight-be/internal/pkg/logger"
	"market-insight-be/internal/repository/contract"
	"market-insight-be/pkg/strategy"
)

const sourceModule = "STRATEGY_SOURCE"

// LocalCache reads and rewrites one owner's strategy slot. It is the
// coordinator's LocalStore.
type LocalCache struct {
	repo   contract.LocalCacheRepository
	owner  string
	logger logger.ILogger
}

func NewLocalCache(repo contract.LocalCacheRepository, owner string, log logger.ILogger) *LocalCache {
	return &LocalCache{repo: repo, owner: owner, logger: log}
}

// Load returns the decodable records of the slot and the failures for the
// rest. A missing slot is an empty collection.
func (s *LocalCache) Load(ctx context.Context) ([]entity.StrategyRecord, []*strategy.ParseFailure, error) {
	text, found, err := s.repo.Get(ctx, s.owner, contract.StrategySlotKey)
	if err != nil {
		return nil, nil, fmt.Errorf("read local cache: %w", err)
	}
	if !found {
		return nil, nil, nil
	}

	records, failures := strategy.DecodeCollection(text, "localCache")
	logFailures(s.logger, s.owner, failures)
	return records, failures, nil
}

func (s *LocalCache) Save(ctx context.Context, records []entity.StrategyRecord) error {
	text, err := strategy.EncodeCollection(records)
	if err != nil {
		return err
	}
	if err := s.repo.Set(ctx, s.owner, contract.StrategySlotKey, text); err != nil {
		return fmt.Errorf("write local cache: %w", err)
	}
	return nil
}

func logFailures(log logger.ILogger, owner string, failures []*strategy.ParseFailure) {
	for _, f := range failures {
		if f.Benign() {
			continue
		}
		details := f.Details()
		details["owner"] = owner
		log.Warn(sourceModule, "Skipped unreadable strategy payload", details)
	}
}
