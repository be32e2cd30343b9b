package ports

import (
	"context"

	"github.com/mikey/llm-lead-router/internal/core"
)

// MessageSource defines the interface for inbound message collaborators
type MessageSource interface {
	// ProcessMessage runs one inbound event through the pipeline
	ProcessMessage(ctx context.Context, event core.InboundEvent) ([]*core.ClassificationRecord, error)

	// Start starts the source
	Start() error

	// Stop stops the source
	Stop() error
}
