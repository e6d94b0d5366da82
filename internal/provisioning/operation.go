package provisioning

import (
	"errors"
	"fmt"
)

// ErrUnknownOperation is returned for operations without a script.
var ErrUnknownOperation = errors.New("unknown provisioning operation")

// Operation is a lifecycle action the provisioning driver can execute.
type Operation string

const (
	OpStartCluster Operation = "start"
	OpStopCluster  Operation = "stop"
	OpAddWorker    Operation = "add-worker"
	OpRemoveWorker Operation = "remove-worker"
)

// scripts maps each operation to the script that implements it.
var scripts = map[Operation]string{
	OpStartCluster: "start_cluster.sh",
	OpStopCluster:  "stop_cluster.sh",
	OpAddWorker:    "add_worker.sh",
	OpRemoveWorker: "delete_worker.sh",
}

// Operations lists the known operations in lifecycle order.
func Operations() []Operation {
	return []Operation{OpStartCluster, OpStopCluster, OpAddWorker, OpRemoveWorker}
}

// Script returns the script file implementing op.
func (op Operation) Script() (string, error) {
	name, ok := scripts[op]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownOperation, string(op))
	}
	return name, nil
}

func (op Operation) String() string {
	return string(op)
}
