package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-lead-router/internal/core"
)

func ptr[T any](v T) *T {
	return &v
}

type fakeSink struct {
	stmts []core.InsertStatement
	id    int64
	err   error
}

func (f *fakeSink) Insert(ctx context.Context, stmt core.InsertStatement) (int64, error) {
	f.stmts = append(f.stmts, stmt)
	if f.err != nil {
		return 0, f.err
	}
	return f.id, nil
}

func offering() *core.ClassificationRecord {
	return &core.ClassificationRecord{
		IsBusinessMessage: true,
		MessageType:       core.MessageOffering,
		ActorType:         core.ActorDistributor,
		Brand:             ptr("Samsung"),
		Model:             ptr("A15"),
		RAM:               ptr(8),
		Storage:           ptr(128),
		Colors:            map[string]int{"black": 10},
		Price:             ptr(18700.0),
		PriceMin:          ptr(18700.0),
		PriceMax:          ptr(18700.0),
		QuantityMin:       ptr(40),
		QuantityMax:       ptr(60),
		Confidence:        0.9,
		Source: core.SourceMeta{
			Sender:      "919800000001",
			ChatID:      "chat-1",
			ChatType:    core.ChatGroup,
			WAMessageID: "wamid.1",
			ReceivedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		RawText: "8/128 available 40-60 pcs @18700",
		RouteTo: core.DestDistributorOfferings,
	}
}

func TestNewRowSkipsAbsentColumns(t *testing.T) {
	row := NewRow(offering())
	require.IsType(t, DistributorOfferingRow{}, row)

	cols, args := row.Columns()
	require.Len(t, args, len(cols))

	assert.Contains(t, cols, "ram")
	assert.Contains(t, cols, "quantity_min")
	assert.Contains(t, cols, "content_hash")
	assert.NotContains(t, cols, "quantity")
	assert.NotContains(t, cols, "variant")
	assert.NotContains(t, cols, "processing_id")

	for i, c := range cols {
		if c == "colors" {
			assert.Equal(t, `{"black":10}`, args[i])
		}
	}
}

func TestNewRowIgnoredMessage(t *testing.T) {
	rec := core.NewNoiseRecord(core.SourceMeta{Sender: "9198", ChatID: "c"}, "good morning", 0, "parse error: bad json")
	row := NewRow(rec)
	require.IsType(t, IgnoredMessageRow{}, row)

	cols, args := row.Columns()
	assert.Equal(t, "noise", args[0])
	assert.Contains(t, cols, "reason")
	assert.NotContains(t, cols, "price")
	assert.NotContains(t, cols, "wa_message_id")
}

func TestBuildInsert(t *testing.T) {
	rec := offering()
	stmt := BuildInsert(NewRow(rec))

	assert.Equal(t, "distributor_offerings", stmt.Table)
	assert.Len(t, stmt.Args, len(stmt.Columns))
	assert.Equal(t, ContentHash(rec), stmt.ContentHash)
	assert.Len(t, stmt.ContentHash, 64)
}

func TestContentHash(t *testing.T) {
	a := offering()
	b := offering()
	assert.Equal(t, ContentHash(a), ContentHash(b))

	b.ProcessingID = "other"
	b.Source.WAMessageID = "wamid.2"
	b.Source.ReceivedAt = b.Source.ReceivedAt.Add(time.Hour)
	assert.Equal(t, ContentHash(a), ContentHash(b), "processing metadata and time of day are not part of the identity")

	b.ItemIndex = 1
	assert.NotEqual(t, ContentHash(a), ContentHash(b))

	c := offering()
	c.Source.ReceivedAt = c.Source.ReceivedAt.Add(24 * time.Hour)
	assert.NotEqual(t, ContentHash(a), ContentHash(c))
}

func TestPersistSuccess(t *testing.T) {
	sink := &fakeSink{id: 7}
	rec := offering()

	require.NoError(t, New(sink, zap.NewNop()).Persist(context.Background(), rec))

	assert.True(t, rec.Inserted)
	require.NotNil(t, rec.InsertedID)
	assert.Equal(t, int64(7), *rec.InsertedID)
	assert.Empty(t, rec.InsertError)
	require.Len(t, sink.stmts, 1)
	assert.Equal(t, "distributor_offerings", sink.stmts[0].Table)
}

func TestPersistRecordsInsertError(t *testing.T) {
	sink := &fakeSink{err: errors.New("duplicate column")}
	rec := offering()

	require.NoError(t, New(sink, zap.NewNop()).Persist(context.Background(), rec))

	assert.False(t, rec.Inserted)
	assert.Nil(t, rec.InsertedID)
	assert.Equal(t, "duplicate column", rec.InsertError)
}

func TestPersistWithoutSink(t *testing.T) {
	rec := offering()
	err := New(nil, zap.NewNop()).Persist(context.Background(), rec)

	assert.ErrorIs(t, err, ErrNoSink)
	assert.False(t, rec.Inserted)
	assert.Equal(t, ErrNoSink.Error(), rec.InsertError)
}

func TestPersistCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &fakeSink{err: context.Canceled}
	rec := offering()

	err := New(sink, zap.NewNop()).Persist(ctx, rec)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, rec.Inserted)
}
