package autoscaler

import (
	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
	"github.com/VoxelHeimGame/db-cluster/internal/config"
)

// Decision is the outcome of evaluating one load sample.
type Decision struct {
	Sample                catalog.LoadSample
	AvgConnectionsPerNode float64
	ScaleOut              bool
	Reason                string
}

// Decide applies policy to sample. A sample without workers never scales.
func Decide(policy config.ScalingPolicy, sample catalog.LoadSample) Decision {
	d := Decision{Sample: sample}
	if sample.WorkerCount <= 0 {
		d.Reason = "no active workers"
		return d
	}

	d.AvgConnectionsPerNode = float64(sample.TotalConnections) / float64(sample.WorkerCount)
	switch {
	case d.AvgConnectionsPerNode <= float64(policy.MaxConnectionsPerNode):
		d.Reason = "load within threshold"
	case sample.WorkerCount >= policy.MaxWorkers:
		d.Reason = "worker limit reached"
	default:
		d.ScaleOut = true
		d.Reason = "average connections per node above threshold"
	}
	return d
}
