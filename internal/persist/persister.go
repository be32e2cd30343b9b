package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/llm-lead-router/internal/core"
	"go.uber.org/zap"
)

// ErrNoSink is returned when no record sink is configured
var ErrNoSink = errors.New("no record sink configured")

// Persister writes routed records to their destination table
type Persister struct {
	sink   core.RecordSink
	logger *zap.Logger
}

// New creates a new Persister
func New(sink core.RecordSink, logger *zap.Logger) *Persister {
	return &Persister{
		sink:   sink,
		logger: logger,
	}
}

// Persist inserts rec and records the outcome on it. Insert failures are stored
// in rec.InsertError and not returned; only a cancelled context or a missing sink
// is reported as an error.
func (p *Persister) Persist(ctx context.Context, rec *core.ClassificationRecord) error {
	if p.sink == nil {
		rec.InsertError = ErrNoSink.Error()
		return ErrNoSink
	}

	stmt := BuildInsert(NewRow(rec))

	id, err := p.sink.Insert(ctx, stmt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			rec.InsertError = ctxErr.Error()
			return fmt.Errorf("persist aborted: %w", ctxErr)
		}
		rec.InsertError = err.Error()
		p.logger.Warn("Failed to persist record",
			zap.String("wa_message_id", rec.Source.WAMessageID),
			zap.String("route", stmt.Table),
			zap.Int("item_index", rec.ItemIndex),
			zap.Error(err))
		return nil
	}

	rec.Inserted = true
	rec.InsertedID = &id

	p.logger.Debug("Persisted record",
		zap.String("route", stmt.Table),
		zap.Int64("id", id),
		zap.String("content_hash", stmt.ContentHash))

	return nil
}
