package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/VoxelHeimGame/db-cluster/internal/config"
	"github.com/VoxelHeimGame/db-cluster/internal/provisioning/driver"
)

// newDriver builds the provisioning driver selected by the configuration.
func newDriver(ctx context.Context, cfg *config.Config) (driver.Driver, error) {
	logger := logr.FromContextOrDiscard(ctx)

	switch cfg.Driver.Kind {
	case config.DriverSSH:
		// #nosec G304
		key, err := os.ReadFile(cfg.Driver.SSH.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh private key: %w", err)
		}
		d, err := driver.NewSSHDriver(driver.SSHConfig{
			Host:       cfg.Driver.SSH.Host,
			Port:       cfg.Driver.SSH.Port,
			User:       cfg.Driver.SSH.User,
			PrivateKey: key,
			ScriptDir:  cfg.Driver.ScriptDir,
			Shell:      cfg.Driver.Shell,
			Timeout:    cfg.Driver.Timeout,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using remote provisioning driver", "host", cfg.Driver.SSH.Host, "scriptDir", cfg.Driver.ScriptDir)
		return d, nil

	case config.DriverScript:
		dir, err := resolveScriptDir(cfg.Driver.ScriptDir)
		if err != nil {
			return nil, err
		}
		d, err := driver.NewScriptDriver(dir, cfg.Driver.Shell, cfg.Driver.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("using local provisioning driver", "scriptDir", dir)
		return d, nil
	}
	return nil, fmt.Errorf("unknown driver kind %q", cfg.Driver.Kind)
}

// resolveScriptDir returns dir when set, otherwise the nearest docker/
// directory above the working directory or the executable.
func resolveScriptDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}

	var starts []string
	if wd, err := os.Getwd(); err == nil {
		starts = append(starts, wd)
	}
	if exe, err := os.Executable(); err == nil {
		starts = append(starts, filepath.Dir(exe))
	}

	for _, start := range starts {
		if found, err := driver.FindScriptDir(start); err == nil {
			return found, nil
		}
	}
	return "", fmt.Errorf("%s directory not found in project structure, set driver.scriptDir or DBCLUSTER_SCRIPT_DIR", driver.ScriptDirName)
}
