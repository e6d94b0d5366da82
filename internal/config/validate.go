package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Catalog.URL == "" {
		return errors.New("catalog.url is required")
	}
	if c.Cluster.LockWait < 0 {
		return errors.New("cluster.lockWait must not be negative")
	}
	if err := c.validateDriver(); err != nil {
		return fmt.Errorf("driver validation failed: %w", err)
	}
	if err := c.validateAutoscaler(); err != nil {
		return fmt.Errorf("autoscaler validation failed: %w", err)
	}
	return nil
}

func (c *Config) validateDriver() error {
	if c.Driver.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Driver.Timeout)
	}

	switch c.Driver.Kind {
	case DriverScript:
		return nil
	case DriverSSH:
		if c.Driver.SSH.Host == "" {
			return errors.New("ssh.host is required for the ssh driver")
		}
		if c.Driver.SSH.User == "" {
			return errors.New("ssh.user is required for the ssh driver")
		}
		if c.Driver.SSH.PrivateKeyFile == "" {
			return errors.New("ssh.privateKeyFile is required for the ssh driver")
		}
		if c.Driver.ScriptDir == "" {
			return errors.New("scriptDir is required for the ssh driver")
		}
		return nil
	default:
		return fmt.Errorf("unknown driver kind %q (expected %q or %q)", c.Driver.Kind, DriverScript, DriverSSH)
	}
}

func (c *Config) validateAutoscaler() error {
	a := c.Autoscaler
	if a.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", a.Interval)
	}
	if a.MaxConnectionsPerNode <= 0 {
		return fmt.Errorf("maxConnectionsPerNode must be positive, got %d", a.MaxConnectionsPerNode)
	}
	if a.MaxWorkers <= 0 {
		return fmt.Errorf("maxWorkers must be positive, got %d", a.MaxWorkers)
	}
	if a.WorkerPort <= 0 || a.WorkerPort > 65535 {
		return fmt.Errorf("workerPort out of range: %d", a.WorkerPort)
	}
	if a.Mode != ScaleOutRegister && a.Mode != ScaleOutProvision {
		return fmt.Errorf("unknown mode %q (expected %q or %q)", a.Mode, ScaleOutRegister, ScaleOutProvision)
	}
	return nil
}
