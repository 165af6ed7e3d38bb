package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/email-onebox/internal/core"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear-index",
	Short: "Delete every message from the index",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Confirm deletion")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearYes {
		return errors.New("refusing to clear the index without --yes")
	}

	container, err := buildContainer()
	if err != nil {
		return err
	}

	return container.Invoke(func(logger *zap.Logger, index core.IndexStore) error {
		defer logger.Sync()
		if closer, ok := index.(io.Closer); ok {
			defer closer.Close()
		}

		deleted, err := index.ClearAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d messages\n", deleted)
		return nil
	})
}
