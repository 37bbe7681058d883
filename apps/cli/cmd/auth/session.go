package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/clienv"
	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
)

func sessionCommand() *cobra.Command {
	var (
		master   bool
		username string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Mint a signed session cookie value for curl or browser testing",
		Long: "Mint a session token signed with SESSION_SECRET. Use --master for a master session and/or\n" +
			"--username to embed that tenant admin's identity. Send it as the " + platformauth.DefaultSessionCookie + " cookie.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !master && username == "" {
				return errors.New("one of --master or --username is required")
			}
			ctx := context.Background()

			e, err := clienv.Open(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.Config.SessionSecret == "" {
				return errors.New("SESSION_SECRET is required")
			}

			p := platformauth.Anonymous().WithMaster(master)
			if username != "" {
				user, err := e.Store.GetUserByUsername(ctx, username)
				if err != nil {
					return fmt.Errorf("find user: %w", err)
				}
				t, err := e.Store.GetTenantByID(ctx, user.TenantID)
				if err != nil {
					return fmt.Errorf("find tenant: %w", err)
				}
				p = p.WithTenantUser(platformauth.TenantUser{UserID: user.ID, TenantID: t.ID, Slug: t.Slug})
			}

			codec := platformauth.NewSessionCodec(platformauth.SessionConfig{
				Secret: []byte(e.Config.SessionSecret),
				TTL:    ttl,
			})
			token, err := codec.Encode(p)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&master, "master", false, "grant the master flag")
	cmd.Flags().StringVar(&username, "username", "", "embed this tenant admin's identity")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime (e.g. 30m, 2h)")

	return cmd
}
