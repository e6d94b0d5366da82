package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/VoxelHeimGame/db-cluster/internal/util/naming"
)

// ScaleOutMode selects how ScaleOut adds a worker.
type ScaleOutMode string

const (
	// ScaleOutRegister registers worker-<n+1> in the catalog without
	// provisioning compute for it.
	ScaleOutRegister ScaleOutMode = "register"
	// ScaleOutProvision provisions the worker through the driver first,
	// exactly like AddWorker.
	ScaleOutProvision ScaleOutMode = "provision"
)

const operationScaleOut = "scale-out"

// ScaleOutResult describes a completed scale-out.
type ScaleOutResult struct {
	// Host is the registered host name or the provisioned worker address.
	Host    string
	Ordinal int
	Mode    ScaleOutMode
}

// ScaleOut adds one worker and rebalances shards. observed is the worker
// count the decision was based on; if the catalog reports a different count
// once the slot is held, ErrStaleObservation is returned and nothing changes.
// ScaleOut never waits for the slot and returns ErrClusterBusy instead.
func (s *Service) ScaleOut(ctx context.Context, clusterID string, observed int) (ScaleOutResult, error) {
	ctx, release, err := s.begin(ctx, clusterID, operationScaleOut, false)
	if err != nil {
		return ScaleOutResult{}, err
	}
	defer release()

	logger := logr.FromContextOrDiscard(ctx).WithValues("mode", string(s.scaleOutMode))
	start := time.Now()

	count, err := s.catalog.WorkerCount(ctx)
	if err != nil {
		s.recordOperation(clusterID, operationScaleOut, resultFailure, time.Since(start))
		return ScaleOutResult{}, fmt.Errorf("failed to count active workers: %w", err)
	}
	if count != observed {
		s.recordOperation(clusterID, operationScaleOut, resultRejected, 0)
		return ScaleOutResult{}, fmt.Errorf("%w: observed %d, catalog reports %d", ErrStaleObservation, observed, count)
	}

	result := ScaleOutResult{Ordinal: count + 1, Mode: s.scaleOutMode}
	switch s.scaleOutMode {
	case ScaleOutProvision:
		ip, err := s.provisionWorker(ctx, clusterID, count)
		if err != nil {
			s.recordOperation(clusterID, operationScaleOut, resultFailure, time.Since(start))
			return ScaleOutResult{}, err
		}
		result.Host = ip
	default:
		result.Host = naming.NextWorkerHost(count)
		if err := s.catalog.AddNode(ctx, result.Host, s.workerPort); err != nil {
			s.recordOperation(clusterID, operationScaleOut, resultFailure, time.Since(start))
			return ScaleOutResult{}, fmt.Errorf("failed to register worker %s: %w", result.Host, err)
		}
	}
	logger.Info("added new worker node", "host", result.Host, "ordinal", result.Ordinal)

	if err := s.catalog.RebalanceShards(ctx); err != nil {
		s.recordOperation(clusterID, operationScaleOut, resultFailure, time.Since(start))
		return result, fmt.Errorf("worker %s added but shard rebalance failed: %w", result.Host, err)
	}
	logger.Info("shards rebalanced across nodes")

	s.recordOperation(clusterID, operationScaleOut, resultSuccess, time.Since(start))
	s.recordWorkers(clusterID, result.Ordinal)
	return result, nil
}
