package root

import (
	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-gacha/apps/cli/cmd/clienv"
)

// rootCmd is the base command for the gacha admin CLI. Subcommands (bootstrap, tenant, etc.) are attached here.
var rootCmd = &cobra.Command{
	Use:           "gacha",
	Short:         "Gacha admin CLI",
	Long:          "Administrative utilities for the gacha service (schema bootstrap, tenant/user management, image reaping, session tokens).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	clienv.AddStoreFlags(rootCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
