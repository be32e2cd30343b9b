package factory

import (
	"fmt"

	"github.com/mikey/llm-lead-router/internal/adapters/bedrock"
	"github.com/mikey/llm-lead-router/internal/adapters/gemini"
	"github.com/mikey/llm-lead-router/internal/adapters/openai"
	"github.com/mikey/llm-lead-router/internal/config"
	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/understanding"
	"github.com/mikey/llm-lead-router/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateLLMClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateLLMClient()
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateLLMClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}

// CreateUnderstandingClient wraps llm with retries, circuit breaking and usage logging
func (f *LLMFactory) CreateUnderstandingClient(llm core.LLMClient, usage core.UsageLogger, text *utils.TextProcessor) *understanding.Client {
	llmConfig := f.cfg.GetLLM()

	return understanding.NewClient(llm, usage, text, understanding.Config{
		MaxAttempts:                llmConfig.MaxAttempts,
		BackoffBase:                llmConfig.BackoffBase,
		BackoffJitter:              llmConfig.BackoffJitter,
		MaxTextChars:               llmConfig.MaxTextChars,
		CallTimeout:                llmConfig.CallTimeout,
		BreakerMaxRequests:         llmConfig.Breaker.MaxRequests,
		BreakerInterval:            llmConfig.Breaker.Interval,
		BreakerTimeout:             llmConfig.Breaker.Timeout,
		BreakerConsecutiveFailures: llmConfig.Breaker.ConsecutiveFailures,
	}, f.logger.Named("understanding"))
}
