package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/mikey/llm-lead-router/internal/adapters/inbound"
	"github.com/mikey/llm-lead-router/internal/config"
	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/dedup"
	"github.com/mikey/llm-lead-router/internal/factory"
	"github.com/mikey/llm-lead-router/internal/logging"
	"github.com/mikey/llm-lead-router/internal/persist"
	"github.com/mikey/llm-lead-router/internal/understanding"
	"github.com/mikey/llm-lead-router/internal/utils"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// LLM provider flags
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Region      string
	MaxTokens   int
	MaxAttempts int

	// Sink flags
	DryRun     bool
	SinkDriver string
	SinkDSN    string

	// Input and output flags
	InputFile  string
	JSONOut    bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// RegisterFlags binds the CLI flags to cmd
func RegisterFlags(cmd *cobra.Command, flags *CLIFlags) {
	f := cmd.Flags()

	// LLM provider flags
	f.StringVarP(&flags.Provider, "provider", "p", "openai", "LLM provider (openai, bedrock, gemini)")
	f.StringVarP(&flags.Model, "model", "m", "", "Model name or Bedrock model ID (provider default when empty)")
	f.StringVar(&flags.APIKey, "api-key", "", "API key for OpenAI or Gemini")
	f.StringVar(&flags.BaseURL, "base-url", "", "Base URL of an OpenAI compatible endpoint")
	f.StringVar(&flags.Region, "region", "us-east-1", "AWS region for Bedrock")
	f.IntVar(&flags.MaxTokens, "max-tokens", 1200, "Maximum tokens for the extraction response")
	f.IntVar(&flags.MaxAttempts, "max-attempts", 3, "Maximum extraction attempts")

	// Sink flags
	f.BoolVar(&flags.DryRun, "dry-run", true, "Do not write records to the sink")
	f.StringVar(&flags.SinkDriver, "sink-driver", "sqlite3", "Sink database driver (postgres, mysql, sqlite3)")
	f.StringVar(&flags.SinkDSN, "sink-dsn", "lead_router.db", "Sink database DSN")

	// Input and output flags
	f.StringVarP(&flags.InputFile, "file", "f", "", "Input event file (use stdin if not specified)")
	f.BoolVar(&flags.JSONOut, "json", false, "Print records as JSON")
	f.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	f.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	f.StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file (overrides command line flags)")
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			cfg.GetViper().Set("server.source", "cli")
			cfg.GetViper().Set("cli.json", flags.JSONOut)
			cfg.GetViper().Set("cli.verbose", flags.Verbose)
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideFactories(container); err != nil {
		return nil, err
	}

	// One-shot runs are never deduplicated
	if err := container.Provide(func() *dedup.Guard { return nil }); err != nil {
		return nil, err
	}

	// Register persister and understanding client. A dry run has no sink, so
	// neither records nor usage are written.
	if err := container.Provide(func(
		flags *CLIFlags,
		sf *factory.SinkFactory,
		lf *factory.LLMFactory,
		llm core.LLMClient,
		text *utils.TextProcessor,
		logger *zap.Logger,
	) (*persist.Persister, *understanding.Client, error) {
		if flags.DryRun {
			logger.Info("Dry run, records will not be persisted")
			return nil, lf.CreateUnderstandingClient(llm, nil, text), nil
		}

		s, err := sf.CreateSink()
		if err != nil {
			return nil, nil, err
		}
		var usage core.UsageLogger
		if sf.UsageLoggingEnabled() {
			usage = s
		}
		return persist.New(s, logger.Named("persist")), lf.CreateUnderstandingClient(llm, usage, text), nil
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register CLI source
	if err := container.Provide(func(f *factory.SourceFactory) (*inbound.CliSource, error) {
		src, err := f.CreateMessageSource()
		if err != nil {
			return nil, err
		}
		return src.(*inbound.CliSource), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("server.source", "cli")
	v.Set("cli.json", flags.JSONOut)
	v.Set("cli.verbose", flags.Verbose)

	// Set LLM provider
	v.Set("llm.provider", flags.Provider)
	v.Set("llm.max_attempts", flags.MaxAttempts)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.Region)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		if flags.Model != "" {
			v.Set("bedrock.model_id", flags.Model)
		}
	case "gemini":
		if flags.APIKey != "" {
			v.Set("gemini.api_key", flags.APIKey)
		}
		v.Set("gemini.max_tokens", flags.MaxTokens)
		if flags.Model != "" {
			v.Set("gemini.model_name", flags.Model)
		}
	case "openai":
		if flags.APIKey != "" {
			v.Set("openai.api_key", flags.APIKey)
		}
		if flags.BaseURL != "" {
			v.Set("openai.base_url", flags.BaseURL)
		}
		v.Set("openai.max_tokens", flags.MaxTokens)
		if flags.Model != "" {
			v.Set("openai.model_name", flags.Model)
		}
	}

	// Set sink
	v.Set("sink.driver", flags.SinkDriver)
	v.Set("sink.dsn", flags.SinkDSN)

	return config.NewFromViper(v)
}
