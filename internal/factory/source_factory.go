package factory

import (
	"fmt"
	"os"

	"github.com/mikey/llm-lead-router/internal/adapters/inbound"
	"github.com/mikey/llm-lead-router/internal/config"
	"github.com/mikey/llm-lead-router/internal/pipeline"
	"github.com/mikey/llm-lead-router/internal/ports"
	"go.uber.org/zap"
)

// SourceFactory creates message sources based on configuration
type SourceFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *pipeline.Service
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger, service *pipeline.Service) *SourceFactory {
	return &SourceFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateMessageSource creates a message source based on the configuration
func (f *SourceFactory) CreateMessageSource() (ports.MessageSource, error) {
	serverCfg := f.cfg.GetServer()

	switch serverCfg.Source {
	case "webhook":
		return inbound.NewWebhookSource(
			f.service,
			f.logger.Named("webhook"),
			serverCfg.ListenAddress,
			serverCfg.RequestTimeout,
			serverCfg.MaxBodyBytes,
		), nil
	case "cli":
		return inbound.NewCliSource(
			f.service,
			f.logger.Named("cli"),
			os.Stdout,
			f.cfg.GetBool("cli.json"),
			f.cfg.GetBool("cli.verbose"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported message source: %s", serverCfg.Source)
	}
}
