package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("REMOTE_STORE_TIMEOUT_SECONDS", "")
	t.Setenv("NATS_URL", "")

	cfg := Load()

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 15*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Generator.Timeout)
	assert.Empty(t, cfg.App.NatsURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REMOTE_STORE_TIMEOUT_SECONDS", "3")
	t.Setenv("WORKSPACE_TTL_MINUTES", "5")
	t.Setenv("GENERATOR_PROVIDER", "ollama")

	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.App.WorkspaceTTL)
	assert.Equal(t, "ollama", cfg.Generator.Provider)
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "ten")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}
