package driver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/VoxelHeimGame/db-cluster/internal/provisioning"
)

// OperationIDEnv carries the operation ID into the script environment.
const OperationIDEnv = "DBCLUSTER_OPERATION_ID"

// DefaultTimeout applies when a driver is created without a timeout.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrTimeout is returned when an operation exceeds the driver timeout.
	ErrTimeout = errors.New("provisioning operation timed out")
	// ErrCommandFailed is returned when the script could not be run or exited non-zero.
	ErrCommandFailed = errors.New("provisioning command failed")
)

// Result is the raw result of a driver call.
type Result struct {
	Output   string
	ExitCode int
	Duration time.Duration
}

// Driver executes provisioning operations.
type Driver interface {
	Run(ctx context.Context, op provisioning.Operation, args []string) (Result, error)
}

type operationIDKey struct{}

// WithOperationID attaches an operation ID that drivers pass to scripts.
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey{}, id)
}

// OperationID returns the operation ID attached to ctx, or "".
func OperationID(ctx context.Context) string {
	id, _ := ctx.Value(operationIDKey{}).(string)
	return id
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
