package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of core.DedupStore
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL dedup store
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_messages (
			message_id VARCHAR(191) PRIMARY KEY,
			first_seen BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_processed_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go cache.startCleanupTask()

	return cache, nil
}

// Claim records id unless a live entry exists. An expired entry is taken over.
func (c *MySQLCache) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	now := time.Now()

	// On a duplicate key the row is only rewritten when it has expired, in which
	// case MySQL reports two affected rows.
	result, err := c.db.ExecContext(ctx, `
		INSERT INTO processed_messages (message_id, first_seen, expires_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			first_seen = IF(expires_at <= VALUES(first_seen), VALUES(first_seen), first_seen),
			expires_at = IF(expires_at <= VALUES(first_seen), VALUES(expires_at), expires_at)
	`, id, now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return false, fmt.Errorf("failed to insert dedup entry: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1 || n == 2, nil
}

// Exists reports whether id has a live entry
func (c *MySQLCache) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx, `
		SELECT 1 FROM processed_messages
		WHERE message_id = ? AND expires_at > ?
	`, id, time.Now().Unix()).Scan(&one)

	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to query dedup entry: %w", err)
	}
	return true, nil
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
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
func (c *MySQLCache) startCleanupTask() {
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
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
