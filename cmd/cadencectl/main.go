// Package main implements cadencectl, a CLI for the cadenced HTTP API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version information
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the persistent flags shared by every command.
type options struct {
	server string
	user   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "cadencectl",
		Short: "CLI for cadenced planning operations",
		Long: `cadencectl talks to a cadenced server. It reads today's decision and the
weekly plan, and records completed, missed and edited days.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:9090", "cadenced server URL")
	root.PersistentFlags().StringVarP(&opts.user, "user", "u", os.Getenv("CADENCE_USER"), "user id (default $CADENCE_USER)")

	root.AddCommand(
		newDecisionCmd(opts),
		newPlanCmd(opts),
		newCompleteCmd(opts),
		newMissCmd(opts),
		newRegenerateCmd(opts),
		newEditCmd(opts),
		newHealthCmd(opts),
	)
	return root
}
