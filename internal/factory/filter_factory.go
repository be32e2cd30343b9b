package factory

import (
	"github.com/mikey/llm-lead-router/internal/businessfilter"
	"github.com/mikey/llm-lead-router/internal/config"
	"github.com/mikey/llm-lead-router/internal/normalizer"
	"github.com/mikey/llm-lead-router/internal/parser"
	"github.com/mikey/llm-lead-router/internal/validator"
	"go.uber.org/zap"
)

// StageFactory creates the content stages of the pipeline
type StageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStageFactory creates a new stage factory
func NewStageFactory(cfg *config.Config, logger *zap.Logger) *StageFactory {
	return &StageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateBusinessFilter creates the business pre-filter
func (f *StageFactory) CreateBusinessFilter() *businessfilter.Filter {
	filterCfg := f.cfg.GetFilter()
	return businessfilter.New(businessfilter.Config{
		ScoreThreshold: filterCfg.ScoreThreshold,
		CasualMaxLen:   filterCfg.CasualMaxLen,
	}, f.logger.Named("filter"))
}

// CreateParser creates the extraction parser
func (f *StageFactory) CreateParser() *parser.Parser {
	return parser.New(f.cfg.GetParser().MinPrice, f.logger.Named("parser"))
}

// CreateValidator creates the schema validator
func (f *StageFactory) CreateValidator() *validator.Validator {
	return validator.New(f.logger.Named("validator"))
}

// CreateNormalizer creates the brand and variant normalizer
func (f *StageFactory) CreateNormalizer() *normalizer.Normalizer {
	normCfg := f.cfg.GetNormalizer()
	return normalizer.New(normalizer.Config{
		MaxEditDistance: normCfg.MaxEditDistance,
		MaxRAMGB:        normCfg.MaxRAMGB,
		ValidStorageGB:  normCfg.ValidStorageGB,
		MinPrice:        f.cfg.GetParser().MinPrice,
	}, f.logger.Named("normalizer"))
}
