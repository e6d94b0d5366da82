package commands

import (
	"github.com/spf13/cobra"

	"github.com/VoxelHeimGame/db-cluster/cmd/dbcluster/handlers"
)

// Serve returns the command that runs the HTTP API and the autoscaler.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file (default: dbcluster.yaml if present)
//	--addr: Listen address, overrides the configuration
//	--script-dir: Directory holding the provisioning scripts
//	--debug: Development logging
//	--no-autoscaler: Do not run the background scale-out loop
func Serve() *cobra.Command {
	var opts handlers.ServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cluster control API",
		Long: `Run the HTTP API that starts and stops the Citus cluster, adds and
removes workers, and reports status. Unless disabled, the autoscaler adds a
worker whenever the average number of connections per worker exceeds the
configured threshold.

Configuration is read from the YAML file, then from the environment
(DATABASE_URL, DBCLUSTER_ADDR, DBCLUSTER_SCRIPT_DIR, ...), then from flags.

Examples:
  # Serve with defaults on :3000
  dbcluster serve

  # Serve with a configuration file and without the autoscaler
  dbcluster serve -c /etc/dbcluster.yaml --no-autoscaler`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: dbcluster.yaml)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default :3000)")
	cmd.Flags().StringVar(&opts.ScriptDir, "script-dir", "", "Provisioning script directory (default: nearest docker/ directory)")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Enable development logging")
	cmd.Flags().BoolVar(&opts.DisableAutoscaler, "no-autoscaler", false, "Disable the autoscaler")

	return cmd
}
