package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CompletionRequest is a provider-agnostic structured extraction request
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Usage holds token accounting for a completion
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CachedTokens     int
}

// Completion is the text returned by a provider together with its usage
type Completion struct {
	Text      string
	Model     string
	RequestID string
	Usage     Usage
}

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends a single request. Transport failures are returned as *ProviderError.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// Provider returns the provider name used in logs and usage records
	Provider() string
}

// ProviderError wraps a provider failure with the HTTP status it carried.
// StatusCode is 0 when no response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err and whether err is a provider error
func StatusOf(err error) (int, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode, true
	}
	return 0, false
}

// DedupStore defines the interface for remembering processed message ids
type DedupStore interface {
	// Claim records id unless present. It returns true when this call recorded it.
	Claim(ctx context.Context, id string, ttl time.Duration) (bool, error)

	// Exists reports whether id is recorded and not expired
	Exists(ctx context.Context, id string) (bool, error)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// UsageLogger receives usage observations of the extraction provider
type UsageLogger interface {
	LogUsage(ctx context.Context, rec UsageRecord) error
}

// InsertStatement is a fully built, dialect-neutral insert. Placeholders are '?'.
type InsertStatement struct {
	Table       string
	Columns     []string
	Args        []any
	ContentHash string
}

// RecordSink is the table-oriented storage collaborator
type RecordSink interface {
	// Insert writes the statement and returns the generated id. A row with the same
	// content hash is not written twice; its existing id is returned instead.
	Insert(ctx context.Context, stmt InsertStatement) (int64, error)
}
