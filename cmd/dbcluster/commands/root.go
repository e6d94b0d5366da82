// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the dbcluster CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dbcluster",
		Short:         "Control surface for a Citus database cluster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Serve())
	cmd.AddCommand(Status())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
