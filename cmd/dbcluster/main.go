// Package main is the entry point for the dbcluster CLI.
//
// dbcluster serves an HTTP control surface over the lifecycle of a Citus
// cluster: start and stop the cluster, add and remove workers, read its
// status, and scale out automatically when connection load is high.
//
// Commands: serve, status, version, completion.
//
// For detailed usage information, run:
//
//	dbcluster --help
package main

import (
	"fmt"
	"os"

	"github.com/VoxelHeimGame/db-cluster/cmd/dbcluster/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
