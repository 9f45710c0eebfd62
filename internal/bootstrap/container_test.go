package bootstrap

import (
	"context"
	"testing"

	"market-insight-be/internal/config"
	"market-insight-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalCacheRepositoryMemory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Backend = "memory"

	repo, closer, err := NewLocalCacheRepository(cfg, logger.NewNopLogger())

	require.NoError(t, err)
	assert.Nil(t, closer)
	require.NoError(t, repo.Set(context.Background(), "u1", "k", "[]"))
}

func TestNewLocalCacheRepositoryUnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Backend = "sqlite"

	_, _, err := NewLocalCacheRepository(cfg, logger.NewNopLogger())

	assert.Error(t, err)
}

func TestNewGeneratorRejectsUnknownProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Generator.Provider = "openai"

	_, err := newGenerator(cfg)
	assert.Error(t, err)

	cfg.Generator.Provider = "api"
	gen, err := newGenerator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, gen)
}
