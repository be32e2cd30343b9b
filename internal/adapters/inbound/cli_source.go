package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/llm-lead-router/internal/core"
	"go.uber.org/zap"
)

// CliSource runs a single inbound event from the command line and prints the result
type CliSource struct {
	processor Processor
	logger    *zap.Logger
	out       io.Writer
	jsonOut   bool
	verbose   bool
}

// NewCliSource creates a new CLI source writing to out
func NewCliSource(processor Processor, logger *zap.Logger, out io.Writer, jsonOut, verbose bool) *CliSource {
	return &CliSource{
		processor: processor,
		logger:    logger,
		out:       out,
		jsonOut:   jsonOut,
		verbose:   verbose,
	}
}

// ReadEvent decodes an inbound event. Input that is not a JSON object is taken
// as the raw text of a message from an unknown sender.
func ReadEvent(r io.Reader) (core.InboundEvent, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.InboundEvent{}, fmt.Errorf("failed to read input: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return core.InboundEvent{}, fmt.Errorf("input is empty")
	}

	if strings.HasPrefix(trimmed, "{") {
		var ev core.InboundEvent
		if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
			return core.InboundEvent{}, fmt.Errorf("invalid inbound event: %w", err)
		}
		return ev, nil
	}

	return core.InboundEvent{
		Body: core.InboundBody{
			Sender:      "cli",
			ChatID:      "cli",
			ChatType:    string(core.ChatIndividual),
			RawText:     trimmed,
			WAMessageID: "unknown",
		},
	}, nil
}

// ProcessMessage runs ev and prints the records
func (s *CliSource) ProcessMessage(ctx context.Context, ev core.InboundEvent) ([]*core.ClassificationRecord, error) {
	s.logger.Debug("Processing message", zap.String("sender", ev.Body.Sender))

	startTime := time.Now()
	records, err := s.processor.Process(ctx, ev)
	if err != nil {
		s.logger.Error("Failed to process message", zap.Error(err))
		return nil, err
	}
	duration := time.Since(startTime)

	if s.jsonOut {
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return records, enc.Encode(records)
	}

	fmt.Fprintf(s.out, "\n=== Results ===\n")
	if len(records) == 0 {
		fmt.Fprintf(s.out, "Message dropped (not business or already processed)\n")
	}
	for _, rec := range records {
		fmt.Fprintf(s.out, "\n[%d] %s -> %s (confidence %.2f)\n", rec.ItemIndex, rec.MessageType, rec.RouteTo, rec.Confidence)
		fmt.Fprintf(s.out, "    Brand: %s  Model: %s  Variant: %s\n", str(rec.Brand), str(rec.Model), str(rec.Variant))
		fmt.Fprintf(s.out, "    RAM/Storage: %s/%s\n", num(rec.RAM), num(rec.Storage))
		fmt.Fprintf(s.out, "    Quantity: %s (%s-%s)\n", num(rec.Quantity), num(rec.QuantityMin), num(rec.QuantityMax))
		fmt.Fprintf(s.out, "    Price: %s (%s-%s)\n", num(rec.Price), num(rec.PriceMin), num(rec.PriceMax))
		if rec.ValidationError != "" {
			fmt.Fprintf(s.out, "    Validation: %s\n", rec.ValidationError)
		}
		if rec.InsertError != "" {
			fmt.Fprintf(s.out, "    Insert error: %s\n", rec.InsertError)
		} else if rec.InsertedID != nil {
			fmt.Fprintf(s.out, "    Inserted id: %d\n", *rec.InsertedID)
		}
	}
	if s.verbose {
		fmt.Fprintf(s.out, "\nProcessing time: %v\n", duration)
	}

	return records, nil
}

// Start is a no-op for the CLI source
func (s *CliSource) Start() error {
	return nil
}

// Stop is a no-op for the CLI source
func (s *CliSource) Stop() error {
	return nil
}

func str(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func num[T int | float64](v *T) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
