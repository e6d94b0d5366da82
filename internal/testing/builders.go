package testing

import (
	"time"

	"github.com/VoxelHeimGame/db-cluster/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a ConfigBuilder starting from the defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: *config.Default()}
}

func (b *ConfigBuilder) clone() *ConfigBuilder {
	return &ConfigBuilder{cfg: b.cfg}
}

// WithAddr sets the listen address.
func (b *ConfigBuilder) WithAddr(addr string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Server.Addr = addr
	return nb
}

// WithDatabaseURL sets the catalog connection string.
func (b *ConfigBuilder) WithDatabaseURL(url string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Catalog.URL = url
	return nb
}

// WithScriptDriver selects the local script driver.
func (b *ConfigBuilder) WithScriptDriver(dir string, timeout time.Duration) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Driver.Kind = config.DriverScript
	nb.cfg.Driver.ScriptDir = dir
	nb.cfg.Driver.Timeout = timeout
	return nb
}

// WithSSHDriver selects the remote driver.
func (b *ConfigBuilder) WithSSHDriver(host, user, keyFile, dir string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Driver.Kind = config.DriverSSH
	nb.cfg.Driver.ScriptDir = dir
	nb.cfg.Driver.SSH.Host = host
	nb.cfg.Driver.SSH.User = user
	nb.cfg.Driver.SSH.PrivateKeyFile = keyFile
	return nb
}

// WithAutoscaler sets the scaling thresholds and interval.
func (b *ConfigBuilder) WithAutoscaler(maxConns, maxWorkers int, interval time.Duration) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Autoscaler.Enabled = true
	nb.cfg.Autoscaler.MaxConnectionsPerNode = maxConns
	nb.cfg.Autoscaler.MaxWorkers = maxWorkers
	nb.cfg.Autoscaler.Interval = interval
	return nb
}

// WithoutAutoscaler disables the autoscaler.
func (b *ConfigBuilder) WithoutAutoscaler() *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Autoscaler.Enabled = false
	return nb
}

// WithLockWait sets the cluster slot wait.
func (b *ConfigBuilder) WithLockWait(d time.Duration) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Cluster.LockWait = d
	return nb
}

// Build returns a copy of the configuration.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.cfg
	return &cfg
}
