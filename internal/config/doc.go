// Package config loads the dbcluster configuration.
//
// Configuration is read from an optional YAML file, then overridden by
// environment variables, then by command-line flags. By default the server
// listens on :3000, runs the provisioning scripts from the nearest docker/
// directory with a 5 minute timeout, and checks the catalog load every 60
// seconds.
//
// Environment Variables:
//   - DATABASE_URL: catalog connection string
//   - DBCLUSTER_ADDR: HTTP listen address
//   - DBCLUSTER_SCRIPT_DIR: directory holding the provisioning scripts
//   - DBCLUSTER_DRIVER_TIMEOUT: provisioning timeout (e.g. 5m)
//   - DBCLUSTER_AUTOSCALER_INTERVAL: autoscaler check interval (e.g. 60s)
//   - DBCLUSTER_MAX_WORKERS: autoscaler worker ceiling
//   - DBCLUSTER_MAX_CONNECTIONS_PER_NODE: autoscaler load threshold
//   - DEBUG: "true" enables development logging
package config
