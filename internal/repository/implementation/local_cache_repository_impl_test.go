package implementation

import (
	"context"
	"os"
	"testing"

	"market-insight-be/internal/model"
	"market-insight-be/internal/repository/contract"
	"market-insight-be/pkg/database"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slotJSON = `[{"id":"c1","name":"A","type":"Launch","aiGenerated":true}]`

func exerciseSlot(t *testing.T, repo contract.LocalCacheRepository) {
	ctx := context.Background()
	owner := "test-" + uuid.NewString()

	_, found, err := repo.Get(ctx, owner, contract.StrategySlotKey)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, owner, contract.StrategySlotKey, slotJSON))
	v, found, err := repo.Get(ctx, owner, contract.StrategySlotKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, slotJSON, v)

	require.NoError(t, repo.Set(ctx, owner, contract.StrategySlotKey, "[]"))
	v, _, err = repo.Get(ctx, owner, contract.StrategySlotKey)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", v)

	require.NoError(t, repo.Set(ctx, owner, contract.StrategySlotKey, "not json"))
	v, _, err = repo.Get(ctx, owner, contract.StrategySlotKey)
	require.NoError(t, err)
	assert.Equal(t, "not json", v)
}

func TestRedisLocalCacheRepository(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	exerciseSlot(t, NewRedisLocalCacheRepository(rdb))
}

func TestGormLocalCacheRepository(t *testing.T) {
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set")
	}
	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.KVSlot{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	exerciseSlot(t, NewGormLocalCacheRepository(db))
}
