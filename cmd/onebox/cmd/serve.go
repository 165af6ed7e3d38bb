package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/reply"
	"github.com/mikey/email-onebox/internal/server"
	"github.com/mikey/email-onebox/internal/syncer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync loop and the HTTP query service",
	Long: `Start the background poller that syncs every configured account and the
HTTP query service. Both stop cleanly on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}

	return container.Invoke(func(
		res resources,
		cfg *config.Config,
		poller *syncer.Poller,
		engine *reply.Engine,
		srv *server.Server,
	) error {
		defer res.release()
		logger := res.Logger

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		replyCfg := cfg.GetReply()
		if replyCfg.SeedOnStart {
			seedOnStart(ctx, engine, replyCfg.TrainingFile, logger)
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			poller.Run(ctx)
			return nil
		})
		g.Go(func() error {
			return srv.Run(ctx)
		})

		err := g.Wait()
		logger.Info("Shutdown complete")
		return err
	})
}

// seedOnStart fills an empty reply collection. Failures are logged and the
// service starts anyway, reply suggestions answer with no match until seeded.
func seedOnStart(ctx context.Context, engine *reply.Engine, trainingFile string, logger *zap.Logger) {
	examples, err := reply.Examples(trainingFile)
	if err != nil {
		logger.Error("Failed to load reply examples", zap.String("file", trainingFile), zap.Error(err))
		return
	}
	seeded, err := engine.EnsureSeeded(ctx, examples)
	if err != nil {
		logger.Error("Failed to seed reply examples", zap.Error(err))
		return
	}
	if seeded > 0 {
		logger.Info("Seeded reply examples", zap.Int("count", seeded))
	}
}
