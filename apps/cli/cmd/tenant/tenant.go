package tenantcmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/clienv"
	"github.com/zenGate-Global/palmyra-gacha/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
)

// Command groups tenant helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant utilities (create/list/delete)",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(deleteCommand())
	return cmd
}

func newService(e *clienv.Env) *service.Service {
	return service.New(e.Store, e.Assets, auth.NewHasher(0), e.Config.EnvKey, e.Logger)
}

func createCommand() *cobra.Command {
	var (
		slug      string
		name      string
		plan      string
		poweredBy string
		username  string
		password  string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant and, optionally, its admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := clienv.Open(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			svc := newService(e)
			t, err := svc.Create(ctx, service.CreateInput{Slug: slug, Name: name, Plan: plan, PoweredBy: poweredBy})
			if err != nil {
				return fmt.Errorf("create tenant: %w", err)
			}

			if username != "" {
				if _, err := svc.Update(ctx, service.UpdateInput{Slug: t.Slug, Username: &username, Password: &password}); err != nil {
					return fmt.Errorf("create admin user: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant created: %s (id %d)\n", t.Slug, t.ID)
			return nil
		},
	}

	c.Flags().StringVar(&slug, "slug", "", "Tenant slug ([a-z0-9_-], up to 32 chars)")
	c.Flags().StringVar(&name, "name", "", "Tenant display name")
	c.Flags().StringVar(&plan, "plan", "normal", "Plan (normal or premium)")
	c.Flags().StringVar(&poweredBy, "powered-by", "", "Powered-by footer text")
	c.Flags().StringVar(&username, "username", "", "Admin username to create with the tenant")
	c.Flags().StringVar(&password, "password", "", "Admin password (at least 6 characters)")

	_ = c.MarkFlagRequired("slug")
	_ = c.MarkFlagRequired("name")
	c.MarkFlagsRequiredTogether("username", "password")

	return c
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenants, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := clienv.Open(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			rows, err := newService(e).List(ctx)
			if err != nil {
				return fmt.Errorf("list tenants: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tNAME\tPLAN\tUSER\tCREATED")
			for _, row := range rows {
				user := "-"
				if row.Username != nil {
					user = *row.Username
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					row.ID, row.Slug, row.Name, row.Plan, user, row.CreatedAt.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func deleteCommand() *cobra.Command {
	var slug string

	c := &cobra.Command{
		Use:   "delete",
		Short: "Delete a tenant with its users, images and stored assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			e, err := clienv.Open(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := newService(e).Delete(ctx, slug); err != nil {
				return fmt.Errorf("delete tenant: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant deleted: %s\n", slug)
			return nil
		},
	}

	c.Flags().StringVar(&slug, "slug", "", "Tenant slug")
	_ = c.MarkFlagRequired("slug")
	return c
}
