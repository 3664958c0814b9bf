package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewClearCommand(root *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every user, scheme, category, feedback entry and refresh token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, log, err := root.load(nil)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			if err := store.Clear(ctx); err != nil {
				return err
			}
			log.Info("database cleared", "database", cfg.Database.Name)
			fmt.Fprintln(cmd.OutOrStdout(), "database cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
