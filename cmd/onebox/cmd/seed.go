package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/reply"
)

var (
	seedFile  string
	seedReset bool
)

var seedCmd = &cobra.Command{
	Use:   "seed-replies",
	Short: "Load reply examples into the vector store",
	Long: `Embed the reply training examples and store them in the reply collection.
By default the collection is only seeded when empty. Use --reset to drop the
existing examples first.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "JSON file of examples (defaults to reply.training_file or the built-in set)")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "Drop the collection before seeding")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}

	return container.Invoke(func(res resources, cfg *config.Config, engine *reply.Engine) error {
		defer res.release()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		path := seedFile
		if path == "" {
			path = cfg.GetReply().TrainingFile
		}
		examples, err := reply.Examples(path)
		if err != nil {
			return err
		}

		var seeded int
		if seedReset {
			seeded, err = engine.Reseed(ctx, examples)
		} else {
			seeded, err = engine.EnsureSeeded(ctx, examples)
		}
		if err != nil {
			return err
		}

		total, err := engine.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d examples, collection now holds %d\n", seeded, total)
		return nil
	})
}
