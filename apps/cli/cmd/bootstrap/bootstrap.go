package bootstrap

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/clienv"
)

// Command applies the store schema. Re-running it is safe: every statement is idempotent.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Apply the database schema",
		Long:  "Apply the database schema for the configured store. SQLite applies it on every open; Postgres only here and at API start.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := clienv.Open(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Store.Ping(ctx); err != nil {
				return fmt.Errorf("ping store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s).\n", e.Config.StoreBackend)
			return nil
		},
	}
}
