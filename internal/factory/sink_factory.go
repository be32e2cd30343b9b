package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/llm-lead-router/internal/adapters/sink"
	"github.com/mikey/llm-lead-router/internal/config"
	"go.uber.org/zap"
)

// SinkFactory creates the SQL record sink
type SinkFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSinkFactory creates a new sink factory
func NewSinkFactory(cfg *config.Config, logger *zap.Logger) *SinkFactory {
	return &SinkFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSink connects to the configured database and creates the schema when
// auto migration is enabled
func (f *SinkFactory) CreateSink() (*sink.SQLSink, error) {
	sinkCfg := f.cfg.GetSink()

	db, err := sink.Open(sinkCfg.Driver, sinkCfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(sinkCfg.MaxOpenConns)
	db.SetMaxIdleConns(sinkCfg.MaxIdleConns)
	db.SetConnMaxLifetime(sinkCfg.ConnMaxLifetime)

	s := sink.NewSQLSink(db, f.logger.Named("sink"))

	if sinkCfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to migrate sink schema: %w", err)
		}
		f.logger.Info("Sink schema ensured", zap.String("driver", db.DriverName()))
	}

	return s, nil
}

// UsageLoggingEnabled reports whether LLM usage is written to the sink
func (f *SinkFactory) UsageLoggingEnabled() bool {
	return f.cfg.GetSink().UsageLogging
}
