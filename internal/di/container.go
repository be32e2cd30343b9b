package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-lead-router/internal/adapters/sink"
	"github.com/mikey/llm-lead-router/internal/businessfilter"
	"github.com/mikey/llm-lead-router/internal/config"
	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/dedup"
	"github.com/mikey/llm-lead-router/internal/factory"
	"github.com/mikey/llm-lead-router/internal/logging"
	"github.com/mikey/llm-lead-router/internal/normalizer"
	"github.com/mikey/llm-lead-router/internal/parser"
	"github.com/mikey/llm-lead-router/internal/persist"
	"github.com/mikey/llm-lead-router/internal/pipeline"
	"github.com/mikey/llm-lead-router/internal/ports"
	"github.com/mikey/llm-lead-router/internal/understanding"
	"github.com/mikey/llm-lead-router/internal/utils"
	"github.com/mikey/llm-lead-router/internal/validator"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideFactories(container); err != nil {
		return nil, err
	}

	// Register dedup store and guard
	if err := container.Provide(func(f *factory.CacheFactory) (core.DedupStore, error) {
		return f.CreateDedupStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory, store core.DedupStore) *dedup.Guard {
		return f.CreateGuard(store)
	}); err != nil {
		return nil, err
	}

	// Register sink and persister
	if err := container.Provide(func(f *factory.SinkFactory) (*sink.SQLSink, error) {
		return f.CreateSink()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *sink.SQLSink, logger *zap.Logger) *persist.Persister {
		return persist.New(s, logger.Named("persist"))
	}); err != nil {
		return nil, err
	}

	// Register understanding client, logging usage to the sink when enabled
	if err := container.Provide(func(
		lf *factory.LLMFactory,
		sf *factory.SinkFactory,
		llm core.LLMClient,
		s *sink.SQLSink,
		text *utils.TextProcessor,
	) *understanding.Client {
		var usage core.UsageLogger
		if sf.UsageLoggingEnabled() {
			usage = s
		}
		return lf.CreateUnderstandingClient(llm, usage, text)
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register message source
	if err := container.Provide(func(f *factory.SourceFactory) (ports.MessageSource, error) {
		return f.CreateMessageSource()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideFactories registers the factories and what they build that does not
// depend on the deployment shape
func provideFactories(container *dig.Container) error {
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewSinkFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStageFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return err
	}

	// Register pipeline stages
	if err := container.Provide(func(f *factory.StageFactory) *businessfilter.Filter {
		return f.CreateBusinessFilter()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.StageFactory) *parser.Parser {
		return f.CreateParser()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.StageFactory) *validator.Validator {
		return f.CreateValidator()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.StageFactory) *normalizer.Normalizer {
		return f.CreateNormalizer()
	}); err != nil {
		return err
	}

	return nil
}

// providePipeline registers the pipeline service over the stages in the container
func providePipeline(container *dig.Container) error {
	return container.Provide(func(
		text *utils.TextProcessor,
		filter *businessfilter.Filter,
		guard *dedup.Guard,
		extractor *understanding.Client,
		p *parser.Parser,
		v *validator.Validator,
		n *normalizer.Normalizer,
		persister *persist.Persister,
		logger *zap.Logger,
	) *pipeline.Service {
		return pipeline.NewService(text, filter, guard, extractor, p, v, n, persister, logger.Named("pipeline"))
	})
}
