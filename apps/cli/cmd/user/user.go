package usercmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/clienv"
	"github.com/zenGate-Global/palmyra-gacha/domains/users/be/service"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
)

// Command groups tenant admin user helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Tenant admin user utilities",
	}
	cmd.AddCommand(resetCommand())
	return cmd
}

func resetCommand() *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "reset",
		Short: "Reset a tenant admin password",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := clienv.Open(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := service.New(e.Store, service.Config{Hasher: auth.NewHasher(0)}, e.Logger)
			if err := svc.ResetPassword(ctx, username, password); err != nil {
				return fmt.Errorf("reset password: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password reset for %s\n", username)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "Username")
	c.Flags().StringVar(&password, "password", "", "New password (at least 6 characters)")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	return c
}
