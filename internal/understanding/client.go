package understanding

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrRetriesExhausted is reported as the fallback reason when every attempt failed
var ErrRetriesExhausted = errors.New("extraction retries exhausted")

// Config holds the retry, breaker and prompt settings of the Client
type Config struct {
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffJitter float64
	MaxTextChars  int
	CallTimeout   time.Duration

	BreakerMaxRequests         uint32
	BreakerInterval            time.Duration
	BreakerTimeout             time.Duration
	BreakerConsecutiveFailures uint32
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		MaxAttempts:                3,
		BackoffBase:                500 * time.Millisecond,
		BackoffJitter:              0.2,
		MaxTextChars:               1500,
		CallTimeout:                45 * time.Second,
		BreakerMaxRequests:         1,
		BreakerInterval:            time.Minute,
		BreakerTimeout:             30 * time.Second,
		BreakerConsecutiveFailures: 5,
	}
}

// Input is the message handed to the understanding stage
type Input struct {
	Source  core.SourceMeta
	RawText string
}

// Client turns a message into a raw extraction envelope through an LLM provider
type Client struct {
	llm    core.LLMClient
	usage  core.UsageLogger
	text   *utils.TextProcessor
	cb     *gobreaker.CircuitBreaker
	cfg    Config
	logger *zap.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewClient creates a new understanding client. usage may be nil.
func NewClient(llm core.LLMClient, usage core.UsageLogger, text *utils.TextProcessor, cfg Config, logger *zap.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}

	c := &Client{
		llm:    llm,
		usage:  usage,
		text:   text,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
		jitter: rand.Float64,
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-" + llm.Provider(),
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.BreakerConsecutiveFailures > 0 &&
				counts.ConsecutiveFailures >= cfg.BreakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Client errors say nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
	})

	return c
}

// Extract sends the message to the provider and returns its raw answer. It never
// fails: on a hard failure the canonical noise envelope is returned with Fallback set.
func (c *Client) Extract(ctx context.Context, in Input) *core.RawExtraction {
	text := c.text.TruncateText(in.RawText, c.cfg.MaxTextChars)
	req := core.CompletionRequest{
		System:      systemInstruction,
		Prompt:      buildPrompt(in.Source, text),
		Temperature: 0,
		JSONMode:    true,
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		started := time.Now()
		comp, err := c.call(ctx, req)
		if err == nil {
			c.emitUsage(in.Source, comp, time.Since(started))
			return &core.RawExtraction{
				Text:    comp.Text,
				RawText: in.RawText,
				Source:  in.Source,
				Model:   comp.Model,
			}
		}
		lastErr = err

		status, _ := core.StatusOf(err)
		if !c.retryable(ctx, err) {
			c.logger.Warn("Extraction failed permanently",
				zap.String("wa_message_id", in.Source.WAMessageID),
				zap.Int("attempt", attempt),
				zap.Int("status", status),
				zap.Error(err))
			return c.fallback(in, err)
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}

		delay := c.backoff(attempt)
		c.logger.Info("Retrying extraction",
			zap.String("wa_message_id", in.Source.WAMessageID),
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := c.sleep(ctx, delay); err != nil {
			return c.fallback(in, err)
		}
	}

	c.logger.Warn("Extraction retries exhausted",
		zap.String("wa_message_id", in.Source.WAMessageID),
		zap.Int("attempts", c.cfg.MaxAttempts),
		zap.Error(lastErr))
	return c.fallback(in, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr))
}

func (c *Client) call(ctx context.Context, req core.CompletionRequest) (*core.Completion, error) {
	if c.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.llm.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return out.(*core.Completion), nil
}

// retryable reports whether another attempt may succeed. Cancellation of the
// caller's context and an open breaker are final.
func (c *Client) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return isTransient(err)
}

// isTransient classifies rate limiting, server errors and failures without a
// status as transient
func isTransient(err error) bool {
	status, _ := core.StatusOf(err)
	return status == 0 || status == 429 || status >= 500
}

// backoff returns base * 2^(attempt-1) plus a uniform extra in [0, jitter*delay)
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.BackoffBase << (attempt - 1)
	if c.cfg.BackoffJitter > 0 {
		delay += time.Duration(c.jitter() * c.cfg.BackoffJitter * float64(delay))
	}
	return delay
}

func (c *Client) fallback(in Input, err error) *core.RawExtraction {
	return &core.RawExtraction{
		Text:           NoiseEnvelope(in.Source),
		RawText:        in.RawText,
		Source:         in.Source,
		Fallback:       true,
		FallbackReason: err.Error(),
	}
}

// emitUsage hands the usage observation to the usage logger without waiting for it
func (c *Client) emitUsage(src core.SourceMeta, comp *core.Completion, latency time.Duration) {
	if c.usage == nil {
		return
	}

	rec := core.UsageRecord{
		Provider:         c.llm.Provider(),
		Model:            comp.Model,
		RequestID:        comp.RequestID,
		PromptTokens:     comp.Usage.PromptTokens,
		CompletionTokens: comp.Usage.CompletionTokens,
		TotalTokens:      comp.Usage.TotalTokens,
		CachedTokens:     comp.Usage.CachedTokens,
		Latency:          latency,
		CostUSD:          CalculateCost(comp.Model, comp.Usage.PromptTokens, comp.Usage.CompletionTokens, comp.Usage.CachedTokens),
		WAMessageID:      src.WAMessageID,
		CreatedAt:        time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.usage.LogUsage(ctx, rec); err != nil {
			c.logger.Warn("Failed to log LLM usage",
				zap.String("request_id", rec.RequestID),
				zap.Error(err))
		}
	}()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
