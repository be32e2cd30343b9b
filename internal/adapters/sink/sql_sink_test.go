package sink

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/persist"
)

func newMockSink(t *testing.T, driver string) (*SQLSink, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLSink(sqlx.NewDb(db, driver), zap.NewNop()), mock
}

var testStmt = core.InsertStatement{
	Table:       "distributor_offerings",
	Columns:     []string{"brand", "content_hash"},
	Args:        []any{"Samsung", "h1"},
	ContentHash: "h1",
}

func TestInsertPostgres(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
		want  int64
	}{
		{
			name: "new row",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO distributor_offerings \(brand, content_hash\) VALUES \(\$1, \$2\) ON CONFLICT \(content_hash\) DO NOTHING RETURNING id`).
					WithArgs("Samsung", "h1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
			},
			want: 5,
		},
		{
			name: "existing row",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO distributor_offerings`).
					WithArgs("Samsung", "h1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectQuery(`SELECT id FROM distributor_offerings WHERE content_hash = \$1`).
					WithArgs("h1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
			},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockSink(t, "postgres")
			tt.setup(mock)

			id, err := s.Insert(context.Background(), testStmt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInsertMySQL(t *testing.T) {
	t.Run("new row", func(t *testing.T) {
		s, mock := newMockSink(t, "mysql")
		mock.ExpectExec(`INSERT IGNORE INTO distributor_offerings \(brand, content_hash\) VALUES \(\?, \?\)`).
			WithArgs("Samsung", "h1").
			WillReturnResult(sqlmock.NewResult(11, 1))

		id, err := s.Insert(context.Background(), testStmt)
		require.NoError(t, err)
		assert.Equal(t, int64(11), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ignored duplicate", func(t *testing.T) {
		s, mock := newMockSink(t, "mysql")
		mock.ExpectExec(`INSERT IGNORE INTO distributor_offerings`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT id FROM distributor_offerings WHERE content_hash = \?`).
			WithArgs("h1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

		id, err := s.Insert(context.Background(), testStmt)
		require.NoError(t, err)
		assert.Equal(t, int64(4), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error", func(t *testing.T) {
		s, mock := newMockSink(t, "mysql")
		mock.ExpectExec(`INSERT IGNORE INTO distributor_offerings`).
			WillReturnError(assert.AnError)

		_, err := s.Insert(context.Background(), testStmt)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestInsertRejectsMalformedStatement(t *testing.T) {
	s, _ := newMockSink(t, "postgres")

	_, err := s.Insert(context.Background(), core.InsertStatement{Table: "dealer_leads", Columns: []string{"a"}})
	assert.Error(t, err)
}

func TestLogUsage(t *testing.T) {
	s, mock := newMockSink(t, "postgres")
	mock.ExpectExec(`INSERT INTO llm_usage_logs`).
		WithArgs("openai", "gpt-4o-mini", "req-1", 1000, 200, 1200, 0, int64(250), 0.00027, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.LogUsage(context.Background(), core.UsageRecord{
		Provider:         "openai",
		Model:            "gpt-4o-mini",
		RequestID:        "req-1",
		PromptTokens:     1000,
		CompletionTokens: 200,
		TotalTokens:      1200,
		Latency:          250 * time.Millisecond,
		CostUSD:          0.00027,
		CreatedAt:        time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRoundTrip(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	s := NewSQLSink(db, zap.NewNop())
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSchema(ctx), "schema creation is idempotent")

	price := 18700.0
	rec := &core.ClassificationRecord{
		IsBusinessMessage: true,
		MessageType:       core.MessageOffering,
		ActorType:         core.ActorDistributor,
		Price:             &price,
		Confidence:        0.9,
		Source: core.SourceMeta{
			Sender:     "919800000001",
			ChatID:     "chat-1",
			ChatType:   core.ChatGroup,
			ReceivedAt: time.Now(),
		},
		RawText: "A15 @18700",
		RouteTo: core.DestDistributorOfferings,
	}
	stmt := persist.BuildInsert(persist.NewRow(rec))

	first, err := s.Insert(ctx, stmt)
	require.NoError(t, err)
	second, err := s.Insert(ctx, stmt)
	require.NoError(t, err)
	assert.Equal(t, first, second, "a repeated content hash returns the stored row")

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM distributor_offerings"))
	assert.Equal(t, 1, count)

	require.NoError(t, s.LogUsage(ctx, core.UsageRecord{Provider: "openai", Model: "gpt-4o-mini", CreatedAt: time.Now()}))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.Error(t, err)
}
