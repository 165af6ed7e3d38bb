package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass over every account and exit",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}

	return container.Invoke(func(res resources, o *syncer.Orchestrator, pipeline *core.Pipeline) error {
		defer res.release()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		report := o.SyncAll(ctx, pipeline.Handler())

		out := cmd.OutOrStdout()
		for _, r := range report.Accounts {
			status := "ok"
			if r.Err != nil {
				status = r.Err.Error()
			}
			fmt.Fprintf(out, "%-40s fetched=%-4d %s\n", r.Account, r.Fetched, status)
		}
		fmt.Fprintf(out, "total fetched=%d failed=%d in %s\n",
			report.Fetched(), report.Failed(), report.Finished.Sub(report.Started).Round(time.Millisecond))

		if n := len(report.Accounts); n > 0 && report.Failed() == n {
			return fmt.Errorf("all %d accounts failed to sync", n)
		}
		return nil
	})
}
