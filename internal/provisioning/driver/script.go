package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/VoxelHeimGame/db-cluster/internal/provisioning"
)

// ScriptDirName is the directory that holds the provisioning scripts.
const ScriptDirName = "docker"

// waitDelay bounds how long Run waits for output pipes after the script is
// killed, since children of the script may still hold them open.
const waitDelay = 5 * time.Second

// ScriptDriver runs provisioning scripts on the local host.
type ScriptDriver struct {
	dir     string
	shell   string
	timeout time.Duration
}

// NewScriptDriver creates a driver running scripts from dir with shell.
func NewScriptDriver(dir, shell string, timeout time.Duration) (*ScriptDriver, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("script directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("script directory %s is not a directory", dir)
	}
	if shell == "" {
		shell = "bash"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ScriptDriver{dir: dir, shell: shell, timeout: timeout}, nil
}

// FindScriptDir walks up from start until it finds a docker/ directory.
func FindScriptDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ScriptDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s directory not found above %s", ScriptDirName, start)
		}
		dir = parent
	}
}

// Dir returns the script directory.
func (d *ScriptDriver) Dir() string {
	return d.dir
}

// Run executes the script for op with args.
func (d *ScriptDriver) Run(ctx context.Context, op provisioning.Operation, args []string) (Result, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("operation", op.String())

	script, err := op.Script()
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.shell, append([]string{script}, args...)...)
	cmd.Dir = d.dir
	cmd.Env = os.Environ()
	if id := OperationID(ctx); id != "" {
		cmd.Env = append(cmd.Env, OperationIDEnv+"="+id)
	}
	cmd.WaitDelay = waitDelay

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	logger.V(1).Info("executing provisioning script", "script", script, "args", args, "dir", d.dir)

	start := time.Now()
	runErr := cmd.Run()
	res := Result{Output: buf.String(), Duration: time.Since(start)}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	logger.V(1).Info("provisioning script finished", "exitCode", res.ExitCode, "duration", res.Duration, "output", res.Output)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w: %s after %s", ErrTimeout, script, d.timeout)
	}
	if runErr != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrCommandFailed, script, runErr)
	}
	return res, nil
}
