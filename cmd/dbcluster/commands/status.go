package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/VoxelHeimGame/db-cluster/cmd/dbcluster/handlers"
)

// Status returns the command that prints the status of a cluster from a
// running dbcluster server.
//
// Optional flags:
//
//	--server, -s: Base URL of the dbcluster API (default http://localhost:3000)
//	--watch, -w: Continuously watch status updates
//	--json: Output in JSON format
func Status() *cobra.Command {
	opts := handlers.StatusOptions{
		Server:   handlers.DefaultServer,
		Interval: 5 * time.Second,
	}

	cmd := &cobra.Command{
		Use:   "status <clusterId>",
		Short: "Show cluster status",
		Long: `Display the active workers of a cluster as reported by a running
dbcluster server.

Examples:
  # Show cluster status
  dbcluster status demo

  # Watch cluster status continuously
  dbcluster status demo --watch

  # Get status in JSON format
  dbcluster status demo --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Status(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Server, "server", "s", opts.Server, "Base URL of the dbcluster API")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Continuously watch status updates")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output in JSON format")

	return cmd
}
