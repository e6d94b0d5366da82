package config

import (
	"os"
	"strconv"
	"time"
)

// ApplyEnv overrides configuration values from environment variables.
// Unset or unparsable variables leave the current value in place.
func (c *Config) ApplyEnv() {
	c.Catalog.URL = parseString("DATABASE_URL", c.Catalog.URL)
	c.Server.Addr = parseString("DBCLUSTER_ADDR", c.Server.Addr)
	c.Driver.ScriptDir = parseString("DBCLUSTER_SCRIPT_DIR", c.Driver.ScriptDir)
	c.Driver.Timeout = parseDuration("DBCLUSTER_DRIVER_TIMEOUT", c.Driver.Timeout)
	c.Autoscaler.Interval = parseDuration("DBCLUSTER_AUTOSCALER_INTERVAL", c.Autoscaler.Interval)
	c.Autoscaler.MaxWorkers = parseInt("DBCLUSTER_MAX_WORKERS", c.Autoscaler.MaxWorkers)
	c.Autoscaler.MaxConnectionsPerNode = parseInt("DBCLUSTER_MAX_CONNECTIONS_PER_NODE", c.Autoscaler.MaxConnectionsPerNode)
	if os.Getenv("DEBUG") == "true" {
		c.Log.Development = true
	}
}

func parseString(envVar, current string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return current
}

// parseDuration parses a duration from an environment variable.
func parseDuration(envVar string, current time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return current
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return current
	}
	return d
}

// parseInt parses an integer from an environment variable.
func parseInt(envVar string, current int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return current
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return current
	}
	return i
}
