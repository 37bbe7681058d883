package imagescmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/clienv"
	"github.com/zenGate-Global/palmyra-gacha/domains/images/be/service"
	tenantsservice "github.com/zenGate-Global/palmyra-gacha/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
)

// Command groups prize image maintenance.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Prize image maintenance",
	}
	cmd.AddCommand(reapCommand())
	return cmd
}

func reapCommand() *cobra.Command {
	var slug string

	c := &cobra.Command{
		Use:   "reap",
		Short: "Delete images older than the retention window",
		Long:  "Delete images created more than 72 hours ago, for one tenant (--slug) or for every tenant, together with their stored files.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := clienv.Open(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := service.New(e.Store, e.Assets, nil, e.Logger)
			now := time.Now()

			if slug == "" {
				reaped, err := svc.ReapAll(ctx, now)
				if err != nil {
					return fmt.Errorf("reap images: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reaped %d images across all tenants\n", len(reaped))
				return nil
			}

			tenants := tenantsservice.New(e.Store, e.Assets, auth.NewHasher(0), e.Config.EnvKey, e.Logger)
			space, err := tenants.ResolveTenantSpace(ctx, slug)
			if err != nil {
				return fmt.Errorf("resolve tenant: %w", err)
			}
			reaped, err := svc.Reap(ctx, space.TenantID, now)
			if err != nil {
				return fmt.Errorf("reap images: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reaped %d images for %s\n", len(reaped), slug)
			return nil
		},
	}

	c.Flags().StringVar(&slug, "slug", "", "Only reap this tenant")
	return c
}
