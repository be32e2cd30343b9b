package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-lead-router/internal/adapters/sink"
	"github.com/mikey/llm-lead-router/internal/core"
	"github.com/mikey/llm-lead-router/internal/di"
	"github.com/mikey/llm-lead-router/internal/factory"
	"github.com/mikey/llm-lead-router/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	source ports.MessageSource,
	llmClient core.LLMClient,
	dedupStore core.DedupStore,
	recordSink *sink.SQLSink,
) error {
	defer logger.Sync()

	// Start the source
	if err := source.Start(); err != nil {
		logger.Error("Failed to start message source", zap.Error(err))
		return err
	}
	logger.Info("Lead router started", zap.String("provider", llmClient.Provider()))

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the source first so no run is writing when the stores close
	if err := source.Stop(); err != nil {
		logger.Error("Failed to stop message source", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	// Stop the dedup store if needed
	if stopper, ok := dedupStore.(factory.Stopper); ok {
		stopper.Stop()
	}

	if err := recordSink.Close(); err != nil {
		logger.Error("Failed to close sink", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
