package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	llm := cfg.GetLLM()
	assert.Equal(t, "openai", llm.Provider)
	assert.Equal(t, 3, llm.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, llm.BackoffBase)
	assert.Equal(t, 1500, llm.MaxTextChars)
	assert.Equal(t, uint32(5), llm.Breaker.ConsecutiveFailures)

	assert.Equal(t, "gpt-4o-mini", cfg.GetOpenAI().ModelName)
	assert.Equal(t, 4, cfg.GetFilter().ScoreThreshold)
	assert.Equal(t, 100.0, cfg.GetParser().MinPrice)
	assert.Equal(t, []int{16, 32, 64, 128, 256, 512, 1024}, cfg.GetNormalizer().ValidStorageGB)
	assert.Equal(t, 72*time.Hour, cfg.GetDedup().TTL)
	assert.Equal(t, "postgres", cfg.GetSink().Driver)
	assert.Equal(t, int64(1<<20), cfg.GetServer().MaxBodyBytes)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LEAD_ROUTER_DEDUP_TYPE", "redis")
	t.Setenv("LEAD_ROUTER_LLM_MAX_ATTEMPTS", "5")

	cfg := NewFromViper(NewEmptyViper())
	assert.Equal(t, "redis", cfg.GetDedup().Type)
	assert.Equal(t, 5, cfg.GetLLM().MaxAttempts)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	v := NewEmptyViper()
	v.Set("dedup.ttl", "soon")
	cfg := NewFromViper(v)

	_, err := cfg.GetDuration("dedup.ttl")
	assert.Error(t, err)
	assert.Equal(t, 72*time.Hour, cfg.GetDedup().TTL)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: gemini\nsink:\n  driver: sqlite3\n"), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.Equal(t, "sqlite3", cfg.GetSink().Driver)
	assert.Equal(t, "memory", cfg.GetDedup().Type)

	_, err = NewFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
