package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/email-onebox/internal/adapters/mimeparse"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/di"
	"github.com/mikey/email-onebox/internal/ports"
)

func main() {
	flags, err := di.ParseFlags(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run classifies one message read from a file or stdin
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	llmClient core.LLMClient,
) error {
	defer logger.Sync()
	defer func() {
		if err := llmClient.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}()

	// Read email from file or stdin
	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		emailReader = file
		logger.Debug("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Debug("Reading email from stdin")
	}

	msg, err := mimeparse.ParseMessage(emailReader)
	if err != nil {
		return err
	}
	msg.Account = "cli"

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = emailFilter.ProcessEmail(ctx, msg)
	return err
}
