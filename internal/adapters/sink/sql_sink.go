package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-lead-router/internal/core"
	"go.uber.org/zap"
)

const usageTable = "llm_usage_logs"

// SQLSink is a relational implementation of core.RecordSink and core.UsageLogger
type SQLSink struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to the database. driver is one of postgres, mysql or sqlite3.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite" {
		driver = "sqlite3"
	}
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("unsupported sink driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	return db, nil
}

// NewSQLSink creates a new SQL sink on db
func NewSQLSink(db *sqlx.DB, logger *zap.Logger) *SQLSink {
	return &SQLSink{
		db:     db,
		logger: logger,
	}
}

// Insert writes stmt. A row whose content hash already exists is left alone and
// its id is returned.
func (s *SQLSink) Insert(ctx context.Context, stmt core.InsertStatement) (int64, error) {
	if len(stmt.Columns) == 0 || len(stmt.Columns) != len(stmt.Args) {
		return 0, fmt.Errorf("malformed insert into %s: %d columns, %d args", stmt.Table, len(stmt.Columns), len(stmt.Args))
	}

	cols := strings.Join(stmt.Columns, ", ")
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(stmt.Columns)), ", ")

	switch s.db.DriverName() {
	case "postgres":
		query := s.db.Rebind(fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (content_hash) DO NOTHING RETURNING id",
			stmt.Table, cols, marks))

		var id int64
		err := s.db.QueryRowxContext(ctx, query, stmt.Args...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return s.existingID(ctx, stmt)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", stmt.Table, err)
		}
		return id, nil

	case "mysql", "sqlite3":
		verb := "INSERT IGNORE"
		if s.db.DriverName() == "sqlite3" {
			verb = "INSERT OR IGNORE"
		}
		query := s.db.Rebind(fmt.Sprintf("%s INTO %s (%s) VALUES (%s)", verb, stmt.Table, cols, marks))

		result, err := s.db.ExecContext(ctx, query, stmt.Args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", stmt.Table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			return s.existingID(ctx, stmt)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to read inserted id: %w", err)
		}
		return id, nil
	}

	return 0, fmt.Errorf("unsupported sink driver %q", s.db.DriverName())
}

func (s *SQLSink) existingID(ctx context.Context, stmt core.InsertStatement) (int64, error) {
	if stmt.ContentHash == "" {
		return 0, fmt.Errorf("insert into %s was ignored", stmt.Table)
	}

	var id int64
	query := s.db.Rebind(fmt.Sprintf("SELECT id FROM %s WHERE content_hash = ?", stmt.Table))
	if err := s.db.GetContext(ctx, &id, query, stmt.ContentHash); err != nil {
		return 0, fmt.Errorf("failed to look up existing row in %s: %w", stmt.Table, err)
	}

	s.logger.Debug("Record already stored",
		zap.String("route", stmt.Table),
		zap.Int64("id", id))
	return id, nil
}

// LogUsage writes a usage observation to llm_usage_logs
func (s *SQLSink) LogUsage(ctx context.Context, rec core.UsageRecord) error {
	query := s.db.Rebind(`
		INSERT INTO ` + usageTable + ` (
			provider, model, request_id, prompt_tokens, completion_tokens, total_tokens,
			cached_tokens, latency_ms, cost_usd, wa_message_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		rec.Provider,
		rec.Model,
		nullString(rec.RequestID),
		rec.PromptTokens,
		rec.CompletionTokens,
		rec.TotalTokens,
		rec.CachedTokens,
		rec.Latency.Milliseconds(),
		rec.CostUSD,
		nullString(rec.WAMessageID),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLSink) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
