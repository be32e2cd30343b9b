package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-lead-router/internal/adapters/inbound"
	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/di"
)

func main() {
	flags := &di.CLIFlags{}

	rootCmd := &cobra.Command{
		Use:   "lead-classify",
		Short: "Classify one chat message and print the routed records",
		Long: `lead-classify runs a single inbound event through the lead routing pipeline.

The input is either an event JSON object ({"body": {"sender": ..., "raw_text": ...}})
or plain message text, read from --file or stdin. Records are not persisted unless
--dry-run=false is given.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := di.BuildCLIContainer(flags)
			if err != nil {
				return fmt.Errorf("failed to build dependency container: %w", err)
			}
			return container.Invoke(func(logger *zap.Logger, source *inbound.CliSource, llmClient core.LLMClient) error {
				return classify(cmd.Context(), flags, logger, source, llmClient)
			})
		},
	}
	di.RegisterFlags(rootCmd, flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func classify(ctx context.Context, flags *di.CLIFlags, logger *zap.Logger, source *inbound.CliSource, llmClient core.LLMClient) error {
	defer logger.Sync()

	// Read event from file or stdin
	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading event from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading event from stdin")
	}

	ev, err := inbound.ReadEvent(reader)
	if err != nil {
		return err
	}

	if _, err := source.ProcessMessage(ctx, ev); err != nil {
		return err
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	return nil
}
