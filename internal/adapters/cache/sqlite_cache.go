package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of core.DedupStore
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite dedup store
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	cache, err := newSQLiteCache(db, logger, cleanupFreq)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Start background cleanup
	go cache.startCleanupTask()

	return cache, nil
}

func newSQLiteCache(db *sql.DB, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_messages (
			message_id TEXT PRIMARY KEY,
			first_seen INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index on expires_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_processed_expires_at ON processed_messages(expires_at)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}, nil
}

// Claim records id unless a live entry exists
func (c *SQLiteCache) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	now := time.Now()

	// An expired entry may be claimed again
	if _, err := c.db.ExecContext(ctx, `
		DELETE FROM processed_messages
		WHERE message_id = ? AND expires_at <= ?
	`, id, now.Unix()); err != nil {
		return false, fmt.Errorf("failed to purge expired entry: %w", err)
	}

	result, err := c.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO processed_messages (message_id, first_seen, expires_at)
		VALUES (?, ?, ?)
	`, id, now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return false, fmt.Errorf("failed to insert dedup entry: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// Exists reports whether id has a live entry
func (c *SQLiteCache) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx, `
		SELECT 1 FROM processed_messages
		WHERE message_id = ? AND expires_at > ?
	`, id, time.Now().Unix()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query dedup entry: %w", err)
	}
	return true, nil
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM processed_messages
		WHERE expires_at <= ?
	`, time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired dedup entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up dedup store", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
