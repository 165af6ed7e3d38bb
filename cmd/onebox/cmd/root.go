package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/di"
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "onebox",
	Short: "Unified inbox with AI labelling and reply suggestions",
	Long: `Email Onebox keeps several IMAP accounts in sync, labels every message
with an LLM, alerts Slack and webhooks about interested leads and serves
search and reply suggestions over HTTP.

Running onebox without a subcommand is the same as "onebox serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (searches default locations if empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// buildContainer creates the dependency container from the global flags
func buildContainer() (*dig.Container, error) {
	container, err := di.BuildContainer(di.Options{
		ConfigPath: configPath,
		Verbose:    verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency container: %w", err)
	}
	return container, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// resources are the long lived clients released when a command exits
type resources struct {
	dig.In

	Logger *zap.Logger
	LLM    core.LLMClient
	Cache  core.CacheRepository
	Index  core.IndexStore
	Vector core.VectorStore
}

// release closes every resource that needs closing
func (r resources) release() {
	if err := r.LLM.Close(); err != nil {
		r.Logger.Error("Failed to close LLM client", zap.Error(err))
	}

	// Stop the cache if needed
	if stopper, ok := r.Cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	for name, store := range map[string]interface{}{"index": r.Index, "vector": r.Vector} {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				r.Logger.Error("Failed to close store", zap.String("store", name), zap.Error(err))
			}
		}
	}

	_ = r.Logger.Sync()
}
