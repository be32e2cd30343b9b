package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mikey/llm-lead-router/internal/adapters/cache"
)

type brokenStore struct{}

func (brokenStore) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return false, errors.New("store down")
}

func (brokenStore) Exists(ctx context.Context, id string) (bool, error) {
	return false, errors.New("store down")
}

func (brokenStore) Cleanup(ctx context.Context) error {
	return nil
}

func newMemoryGuard() *Guard {
	store := cache.NewMemoryCache(zap.NewNop(), time.Hour, time.Hour, 0)
	return NewGuard(store, time.Hour, zap.NewNop())
}

func TestTrackable(t *testing.T) {
	assert.True(t, Trackable("wamid.HBgM"))
	assert.False(t, Trackable(""))
	assert.False(t, Trackable("   "))
	assert.False(t, Trackable("unknown"))
	assert.False(t, Trackable("UNKNOWN"))
}

func TestAlreadyProcessedAfterMark(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGuard()

	assert.False(t, g.AlreadyProcessed(ctx, "wamid.1"))
	g.MarkProcessed(ctx, "wamid.1")
	assert.True(t, g.AlreadyProcessed(ctx, "wamid.1"))
	assert.False(t, g.AlreadyProcessed(ctx, "wamid.2"))
}

func TestClaimIsAtMostOnce(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGuard()

	assert.True(t, g.Claim(ctx, "wamid.1"))
	assert.False(t, g.Claim(ctx, "wamid.1"))
	assert.True(t, g.AlreadyProcessed(ctx, "wamid.1"))
}

func TestUntrackableIdsAreNeverDeduplicated(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGuard()

	for _, id := range []string{"", "unknown"} {
		assert.True(t, g.Claim(ctx, id))
		assert.True(t, g.Claim(ctx, id))
		g.MarkProcessed(ctx, id)
		assert.False(t, g.AlreadyProcessed(ctx, id))
	}
}

func TestStoreFailureFailsOpen(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(brokenStore{}, time.Hour, zap.NewNop())

	assert.True(t, g.Claim(ctx, "wamid.1"))
	assert.False(t, g.AlreadyProcessed(ctx, "wamid.1"))
	g.MarkProcessed(ctx, "wamid.1")
}
