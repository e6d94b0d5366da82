package cluster

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/VoxelHeimGame/db-cluster/internal/provisioning"
)

var (
	// ErrLastWorker is returned when a removal would leave the cluster without workers.
	ErrLastWorker = errors.New("cannot remove the last worker node")
	// ErrClusterBusy is returned when another mutating operation holds the cluster slot.
	// Callers may retry.
	ErrClusterBusy = errors.New("cluster is busy with another operation")
	// ErrOperationFailed is returned when provisioning did not report success.
	ErrOperationFailed = errors.New("cluster operation failed")
	// ErrInvalidArgument is returned for malformed cluster IDs and worker counts.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStaleObservation is returned by ScaleOut when the worker count changed
	// after the autoscaler sampled it.
	ErrStaleObservation = errors.New("worker count changed since observation")
)

// clusterIDPattern keeps IDs safe to pass as script arguments.
var clusterIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,62}$`)

// ValidateID checks that id is a usable cluster ID.
func ValidateID(id string) error {
	if !clusterIDPattern.MatchString(id) {
		return fmt.Errorf("%w: cluster id %q must match %s", ErrInvalidArgument, id, clusterIDPattern.String())
	}
	return nil
}

var failureMessages = map[provisioning.Operation]string{
	provisioning.OpStartCluster: "Failed to start cluster %s",
	provisioning.OpStopCluster:  "Failed to stop cluster %s",
	provisioning.OpAddWorker:    "Failed to start new worker for cluster %s",
	provisioning.OpRemoveWorker: "Failed to remove workers from cluster %s",
}

// OperationError reports a provisioning operation that did not succeed.
// It matches ErrOperationFailed and unwraps to the driver error, if any.
type OperationError struct {
	Op        provisioning.Operation
	ClusterID string
	// Output is the raw driver output.
	Output string
	Err    error
}

// Message returns the user-facing failure message.
func (e *OperationError) Message() string {
	format, ok := failureMessages[e.Op]
	if !ok {
		format = "Operation failed for cluster %s"
	}
	return fmt.Sprintf(format, e.ClusterID)
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s failed for cluster %s", e.Op, e.ClusterID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrOperationFailed}
	}
	return []error{ErrOperationFailed, e.Err}
}
