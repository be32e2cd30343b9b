// Package dedup guards the understanding stage against reprocessing the same
// inbound event, for example after a transport-layer redelivery.
package dedup

import (
	"context"
	"strings"
	"time"

	"github.com/mikey/llm-lead-router/internal/core"
	"go.uber.org/zap"
)

// Guard is the at-most-once check keyed by external message id
type Guard struct {
	store  core.DedupStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewGuard creates a new dedup guard over store
func NewGuard(store core.DedupStore, ttl time.Duration, logger *zap.Logger) *Guard {
	return &Guard{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Trackable reports whether id can be deduplicated at all
func Trackable(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && !strings.EqualFold(id, "unknown")
}

// AlreadyProcessed reports whether id was already submitted. Untrackable ids and
// store failures report false.
func (g *Guard) AlreadyProcessed(ctx context.Context, id string) bool {
	if !Trackable(id) {
		return false
	}
	seen, err := g.store.Exists(ctx, id)
	if err != nil {
		g.logger.Warn("Dedup lookup failed, treating message as new",
			zap.String("wa_message_id", id), zap.Error(err))
		return false
	}
	return seen
}

// MarkProcessed records id as submitted
func (g *Guard) MarkProcessed(ctx context.Context, id string) {
	if !Trackable(id) {
		return
	}
	if _, err := g.store.Claim(ctx, id, g.ttl); err != nil {
		g.logger.Warn("Failed to record processed message",
			zap.String("wa_message_id", id), zap.Error(err))
	}
}

// Claim atomically checks and records id. It returns true when the caller should
// process the message.
func (g *Guard) Claim(ctx context.Context, id string) bool {
	if !Trackable(id) {
		return true
	}
	first, err := g.store.Claim(ctx, id, g.ttl)
	if err != nil {
		g.logger.Warn("Dedup claim failed, treating message as new",
			zap.String("wa_message_id", id), zap.Error(err))
		return true
	}
	if !first {
		g.logger.Info("Skipping already processed message", zap.String("wa_message_id", id))
	}
	return first
}
