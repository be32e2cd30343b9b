package understanding

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/llm-lead-router/internal/core"
)

type fakeLLM struct {
	mu       sync.Mutex
	errs     []error
	text     string
	requests []core.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req core.CompletionRequest) (*core.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if n := len(f.requests); n <= len(f.errs) && f.errs[n-1] != nil {
		return nil, f.errs[n-1]
	}
	return &core.Completion{
		Text:      f.text,
		Model:     "gpt-4o-mini",
		RequestID: "req-1",
		Usage:     core.Usage{PromptTokens: 1000, CompletionTokens: 200, TotalTokens: 1200},
	}, nil
}

func (f *fakeLLM) Provider() string {
	return "fake"
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type usageRecorder struct {
	ch chan core.UsageRecord
}

func (u *usageRecorder) LogUsage(ctx context.Context, rec core.UsageRecord) error {
	u.ch <- rec
	return nil
}

func status(code int) error {
	return &core.ProviderError{Provider: "fake", StatusCode: code, Err: errors.New("boom")}
}

func newTestClient(llm core.LLMClient, usage core.UsageLogger) (*Client, *[]time.Duration) {
	c := NewClient(llm, usage, nil, DefaultConfig(), zap.NewNop())
	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	c.jitter = func() float64 { return 0 }
	return c, &delays
}

var testSource = core.SourceMeta{
	Sender:      "919800000001",
	ChatID:      "120363000000@g.us",
	ChatType:    core.ChatGroup,
	WAMessageID: "wamid.1",
}

func TestExtractSuccess(t *testing.T) {
	llm := &fakeLLM{text: `{"message_type":"offering"}`}
	c, delays := newTestClient(llm, nil)

	raw := c.Extract(context.Background(), Input{Source: testSource, RawText: "S23 8/256 @52000"})

	assert.False(t, raw.Fallback)
	assert.Equal(t, `{"message_type":"offering"}`, raw.Text)
	assert.Equal(t, "gpt-4o-mini", raw.Model)
	assert.Equal(t, "S23 8/256 @52000", raw.RawText)
	assert.Equal(t, testSource, raw.Source)
	assert.Equal(t, 1, llm.calls())
	assert.Empty(t, *delays)

	req := llm.requests[0]
	assert.True(t, req.JSONMode)
	assert.Zero(t, req.Temperature)
	assert.Equal(t, systemInstruction, req.System)
	assert.Contains(t, req.Prompt, "S23 8/256 @52000")
	assert.Contains(t, req.Prompt, "Chat type: group")
}

func TestExtractTruncatesPromptText(t *testing.T) {
	llm := &fakeLLM{text: "{}"}
	c, _ := newTestClient(llm, nil)

	long := strings.Repeat("a", 1400) + strings.Repeat("b", 200)
	raw := c.Extract(context.Background(), Input{Source: testSource, RawText: long})

	prompt := llm.requests[0].Prompt
	assert.Contains(t, prompt, strings.Repeat("b", 100))
	assert.NotContains(t, prompt, strings.Repeat("b", 101))
	assert.Equal(t, long, raw.RawText, "the raw text kept for later stages is not truncated")
}

func TestExtractRetriesTransientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"rate limited", status(429)},
		{"server error", status(503)},
		{"no response", status(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{errs: []error{tt.err, tt.err}, text: "{}"}
			c, delays := newTestClient(llm, nil)

			raw := c.Extract(context.Background(), Input{Source: testSource, RawText: "need 10 pcs"})

			assert.False(t, raw.Fallback)
			assert.Equal(t, 3, llm.calls())
			assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, *delays)
		})
	}
}

func TestExtractFatalStatusFallsBackImmediately(t *testing.T) {
	llm := &fakeLLM{errs: []error{status(400)}}
	c, delays := newTestClient(llm, nil)

	raw := c.Extract(context.Background(), Input{Source: testSource, RawText: "need 10 pcs"})

	assert.True(t, raw.Fallback)
	assert.Contains(t, raw.FallbackReason, "status 400")
	assert.Equal(t, 1, llm.calls())
	assert.Empty(t, *delays)
}

func TestExtractExhaustedReturnsNoiseEnvelope(t *testing.T) {
	llm := &fakeLLM{errs: []error{status(500), status(500), status(500)}}
	c, delays := newTestClient(llm, nil)

	raw := c.Extract(context.Background(), Input{Source: testSource, RawText: "need 10 pcs"})

	require.True(t, raw.Fallback)
	assert.Equal(t, 3, llm.calls())
	assert.Len(t, *delays, 2)
	assert.Contains(t, raw.FallbackReason, ErrRetriesExhausted.Error())

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw.Text), &env))
	assert.Equal(t, false, env["is_business_message"])
	assert.Equal(t, "noise", env["message_type"])
	assert.Equal(t, "unknown", env["actor_type"])
	assert.Equal(t, []any{}, env["items"])
	assert.Equal(t, 0.0, env["confidence"])
	source := env["source"].(map[string]any)
	assert.Equal(t, testSource.Sender, source["sender"])
	assert.Equal(t, testSource.ChatID, source["chat_id"])
	assert.Equal(t, "group", source["chat_type"])
}

func TestExtractStopsOnCancelledContext(t *testing.T) {
	llm := &fakeLLM{errs: []error{status(503), status(503), status(503)}}
	c, _ := newTestClient(llm, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(context.Context, time.Duration) error {
		cancel()
		return ctx.Err()
	}

	raw := c.Extract(ctx, Input{Source: testSource, RawText: "need 10 pcs"})

	assert.True(t, raw.Fallback)
	assert.Equal(t, 1, llm.calls())
}

func TestExtractEmitsUsageOnce(t *testing.T) {
	usage := &usageRecorder{ch: make(chan core.UsageRecord, 4)}
	llm := &fakeLLM{errs: []error{status(503)}, text: "{}"}
	c, _ := newTestClient(llm, usage)

	c.Extract(context.Background(), Input{Source: testSource, RawText: "need 10 pcs"})

	select {
	case rec := <-usage.ch:
		assert.Equal(t, "fake", rec.Provider)
		assert.Equal(t, "gpt-4o-mini", rec.Model)
		assert.Equal(t, "req-1", rec.RequestID)
		assert.Equal(t, 1200, rec.TotalTokens)
		assert.Equal(t, "wamid.1", rec.WAMessageID)
		assert.InDelta(t, CalculateCost("gpt-4o-mini", 1000, 200, 0), rec.CostUSD, 1e-12)
	case <-time.After(time.Second):
		t.Fatal("usage was not emitted")
	}

	select {
	case <-usage.ch:
		t.Fatal("usage emitted more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBackoffJitter(t *testing.T) {
	c, _ := newTestClient(&fakeLLM{}, nil)
	c.jitter = func() float64 { return 0.5 }

	// 0.5 of the 0.2 jitter fraction adds 10%
	assert.Equal(t, 550*time.Millisecond, c.backoff(1))
	assert.Equal(t, 1100*time.Millisecond, c.backoff(2))
	assert.Equal(t, 2200*time.Millisecond, c.backoff(3))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = status(503)
	}
	llm := &fakeLLM{errs: errs}
	cfg := DefaultConfig()
	cfg.MaxAttempts = 1
	cfg.BreakerConsecutiveFailures = 2
	c := NewClient(llm, nil, nil, cfg, zap.NewNop())

	for i := 0; i < 2; i++ {
		assert.True(t, c.Extract(context.Background(), Input{Source: testSource}).Fallback)
	}
	raw := c.Extract(context.Background(), Input{Source: testSource})

	assert.True(t, raw.Fallback)
	assert.Equal(t, 2, llm.calls(), "an open breaker does not reach the provider")
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	errs := make([]error, 5)
	for i := range errs {
		errs[i] = status(400)
	}
	llm := &fakeLLM{errs: errs}
	cfg := DefaultConfig()
	cfg.BreakerConsecutiveFailures = 2
	c := NewClient(llm, nil, nil, cfg, zap.NewNop())

	for i := 0; i < 5; i++ {
		c.Extract(context.Background(), Input{Source: testSource})
	}
	assert.Equal(t, 5, llm.calls())
}

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.15+0.60, CalculateCost("gpt-4o-mini", 1_000_000, 1_000_000, 0), 1e-9)
	assert.InDelta(t, 0.075, CalculateCost("gpt-4o-mini-2024-07-18", 1_000_000, 0, 1_000_000), 1e-9)
	assert.InDelta(t, 2.50, CalculateCost("gpt-4o", 1_000_000, 0, 0), 1e-9)
	assert.InDelta(t, 0.25, CalculateCost("us.anthropic.claude-3-haiku-20240307-v1:0", 1_000_000, 0, 0), 1e-9)
	assert.Zero(t, CalculateCost("mystery-model", 1000, 1000, 0))
}
