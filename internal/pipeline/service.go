// Package pipeline runs an inbound chat message through every stage, from the
// business pre-filter to persistence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/llm-lead-router/internal/businessfilter"
	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/dedup"
	"github.com/mikey/llm-lead-router/internal/normalizer"
	"github.com/mikey/llm-lead-router/internal/parser"
	"github.com/mikey/llm-lead-router/internal/persist"
	"github.com/mikey/llm-lead-router/internal/router"
	"github.com/mikey/llm-lead-router/internal/understanding"
	"github.com/mikey/llm-lead-router/internal/utils"
	"github.com/mikey/llm-lead-router/internal/validator"
	"go.uber.org/zap"
)

// Service is the lead routing pipeline. It is safe for concurrent use.
type Service struct {
	text       *utils.TextProcessor
	filter     *businessfilter.Filter
	guard      *dedup.Guard
	extractor  *understanding.Client
	parser     *parser.Parser
	validator  *validator.Validator
	normalizer *normalizer.Normalizer
	persister  *persist.Persister
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new pipeline service. guard may be nil to disable
// deduplication and persister may be nil for a dry run.
func NewService(
	text *utils.TextProcessor,
	filter *businessfilter.Filter,
	guard *dedup.Guard,
	extractor *understanding.Client,
	parser *parser.Parser,
	validator *validator.Validator,
	normalizer *normalizer.Normalizer,
	persister *persist.Persister,
	logger *zap.Logger,
) *Service {
	return &Service{
		text:       text,
		filter:     filter,
		guard:      guard,
		extractor:  extractor,
		parser:     parser,
		validator:  validator,
		normalizer: normalizer,
		persister:  persister,
		logger:     logger,
		now:        time.Now,
	}
}

// Process runs ev through the pipeline and returns the resulting records. Messages
// dropped by the filter or already processed yield no records. An error is
// returned only when the run could not complete: a cancelled context, a missing
// sink or a stage failing unexpectedly.
func (s *Service) Process(ctx context.Context, ev core.InboundEvent) (records []*core.ClassificationRecord, err error) {
	msg := ev.Message(s.now().UTC())
	logger := s.logger.With(
		zap.String("wa_message_id", msg.WAMessageID),
		zap.String("sender", msg.Sender),
		zap.String("chat_id", msg.ChatID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Pipeline run failed", zap.Any("panic", r))
			records, err = nil, fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	started := s.now()
	text := s.text.NormalizeText(msg.RawText)

	if verdict := s.filter.Evaluate(text); !verdict.Pass {
		logger.Info("Dropping non-business message",
			zap.Int("score", verdict.Score),
			zap.String("reason", verdict.Reason))
		return []*core.ClassificationRecord{}, nil
	}

	if s.guard != nil && !s.guard.Claim(ctx, msg.WAMessageID) {
		return []*core.ClassificationRecord{}, nil
	}

	extraction := s.extractor.Extract(ctx, understanding.Input{
		Source:  msg.Source(),
		RawText: text,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("extraction interrupted: %w", ctxErr)
	}
	if extraction.Fallback {
		logger.Warn("Using noise fallback for extraction",
			zap.String("reason", extraction.FallbackReason))
	}

	processingID := uuid.NewString()
	candidates := s.parser.Parse(extraction)
	records = make([]*core.ClassificationRecord, 0, len(candidates))

	counts := make(map[core.Destination]int)
	failed := 0
	for _, c := range candidates {
		rec := s.validator.Validate(c)
		rec = s.normalizer.Normalize(rec)
		rec = router.Route(rec)
		rec.ProcessingID = processingID

		if s.persister != nil {
			if err := s.persister.Persist(ctx, rec); err != nil {
				logger.Error("Pipeline run aborted", zap.Error(err))
				return nil, err
			}
			if rec.InsertError != "" {
				failed++
			}
		}

		counts[rec.RouteTo]++
		records = append(records, rec)
	}

	logger.Info("Processed message",
		zap.String("processing_id", processingID),
		zap.Int("records", len(records)),
		zap.Int("dealer_leads", counts[core.DestDealerLeads]),
		zap.Int("distributor_offerings", counts[core.DestDistributorOfferings]),
		zap.Int("ignored_messages", counts[core.DestIgnoredMessages]),
		zap.Int("insert_errors", failed),
		zap.Bool("fallback", extraction.Fallback),
		zap.Duration("elapsed", s.now().Sub(started)))

	return records, nil
}
