package config

import "time"

// Driver kinds.
const (
	DriverScript = "script"
	DriverSSH    = "ssh"
)

// Autoscaler scale-out modes.
const (
	// ScaleOutRegister records the new worker in the catalog without
	// provisioning compute for it.
	ScaleOutRegister = "register"
	// ScaleOutProvision runs the provisioning driver before registering.
	ScaleOutProvision = "provision"
)

// Config is the top-level dbcluster configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Driver     DriverConfig     `yaml:"driver"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	Autoscaler AutoscalerConfig `yaml:"autoscaler"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
}

// CatalogConfig configures the connection to the cluster catalog.
type CatalogConfig struct {
	URL            string        `yaml:"url"`
	MaxConns       int32         `yaml:"maxConns"`
	ConnectRetries int           `yaml:"connectRetries"`
	QueryTimeout   time.Duration `yaml:"queryTimeout"`
}

// DriverConfig configures the provisioning driver.
type DriverConfig struct {
	Kind      string        `yaml:"kind"`
	ScriptDir string        `yaml:"scriptDir"`
	Shell     string        `yaml:"shell"`
	Timeout   time.Duration `yaml:"timeout"`
	SSH       SSHConfig     `yaml:"ssh"`
}

// SSHConfig configures the remote driver.
type SSHConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	PrivateKeyFile string `yaml:"privateKeyFile"`
}

// ClusterConfig configures lifecycle operations.
type ClusterConfig struct {
	// LockWait bounds how long a request waits for the cluster's exclusive
	// slot before failing with a retryable error.
	LockWait time.Duration `yaml:"lockWait"`
}

// AutoscalerConfig configures the background scale-out loop.
type AutoscalerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	ClusterID string        `yaml:"clusterId"`
	Mode      string        `yaml:"mode"`
	Interval  time.Duration `yaml:"interval"`
	// WorkerPort is the port recorded for workers registered in register mode.
	WorkerPort            int `yaml:"workerPort"`
	MaxConnectionsPerNode int `yaml:"maxConnectionsPerNode"`
	MaxWorkers            int `yaml:"maxWorkers"`
}

// LogConfig configures logging.
type LogConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

// MetricsConfig configures prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ScalingPolicy returns the immutable thresholds governing scale-out.
func (c *Config) ScalingPolicy() ScalingPolicy {
	return ScalingPolicy{
		MaxConnectionsPerNode: c.Autoscaler.MaxConnectionsPerNode,
		MaxWorkers:            c.Autoscaler.MaxWorkers,
		CheckInterval:         c.Autoscaler.Interval,
	}
}

// ScalingPolicy holds the fixed thresholds the autoscaler evaluates.
// It is copied by value so it cannot change after startup.
type ScalingPolicy struct {
	MaxConnectionsPerNode int
	MaxWorkers            int
	CheckInterval         time.Duration
}
