package cluster

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
	"github.com/VoxelHeimGame/db-cluster/internal/provisioning"
	"github.com/VoxelHeimGame/db-cluster/internal/provisioning/driver"
	"github.com/VoxelHeimGame/db-cluster/internal/provisioning/outcome"
)

const (
	// DefaultLockWait bounds how long manual operations queue for the cluster slot.
	DefaultLockWait = 30 * time.Second
	// DefaultWorkerPort is the port registered for autoscaler-named workers.
	DefaultWorkerPort = 5432
)

// ClusterStatus is a snapshot of the cluster's active workers.
// IsRunning is true exactly when WorkerCount is positive.
type ClusterStatus struct {
	IsRunning   bool                 `json:"isRunning"`
	WorkerCount int                  `json:"workerCount"`
	Workers     []catalog.WorkerNode `json:"workers"`
	// Degraded is set when the catalog could not be read and the
	// snapshot is the empty fallback.
	Degraded bool `json:"degraded,omitempty"`
}

func emptyStatus() ClusterStatus {
	return ClusterStatus{Workers: []catalog.WorkerNode{}}
}

// Service runs lifecycle operations against the catalog and the provisioning driver.
type Service struct {
	catalog catalog.Catalog
	driver  driver.Driver
	slots   *slots

	// catalogDegraded holds the outcome of the last status read.
	catalogDegraded atomic.Bool

	lockWait       time.Duration
	scaleOutMode   ScaleOutMode
	workerPort     int
	enableMetrics  bool
	newOperationID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLockWait sets how long manual operations wait for a busy cluster.
// Zero makes them fail fast.
func WithLockWait(d time.Duration) Option {
	return func(s *Service) { s.lockWait = d }
}

// WithScaleOutMode selects how ScaleOut adds a worker.
func WithScaleOutMode(mode ScaleOutMode) Option {
	return func(s *Service) { s.scaleOutMode = mode }
}

// WithWorkerPort sets the port registered by ScaleOut in register mode.
func WithWorkerPort(port int) Option {
	return func(s *Service) { s.workerPort = port }
}

// WithMetrics enables Prometheus metrics recording.
func WithMetrics(enabled bool) Option {
	return func(s *Service) { s.enableMetrics = enabled }
}

// WithOperationIDs overrides the operation ID generator.
func WithOperationIDs(fn func() string) Option {
	return func(s *Service) { s.newOperationID = fn }
}

// NewService creates a Service.
func NewService(cat catalog.Catalog, drv driver.Driver, opts ...Option) *Service {
	s := &Service{
		catalog:        cat,
		driver:         drv,
		slots:          newSlots(),
		lockWait:       DefaultLockWait,
		scaleOutMode:   ScaleOutRegister,
		workerPort:     DefaultWorkerPort,
		newOperationID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// begin takes the cluster slot for a mutating operation and returns a context
// carrying the operation ID and a logger scoped to the operation. The slot
// wait honours ctx; the returned context does not inherit its cancellation.
func (s *Service) begin(ctx context.Context, clusterID, operation string, wait bool) (context.Context, func(), error) {
	if err := ValidateID(clusterID); err != nil {
		return ctx, nil, err
	}

	var (
		release func()
		err     error
	)
	if wait {
		release, err = s.slots.acquire(ctx, clusterID, s.lockWait)
	} else {
		var ok bool
		if release, ok = s.slots.tryAcquire(clusterID); !ok {
			err = fmt.Errorf("%w: %s", ErrClusterBusy, clusterID)
		}
	}
	if err != nil {
		s.recordOperation(clusterID, operation, resultBusy, 0)
		return ctx, nil, err
	}

	// Once the slot is held the operation runs to completion or to the
	// driver timeout; a caller going away must not abort a script midway.
	ctx = context.WithoutCancel(ctx)

	opID := s.newOperationID()
	logger := logr.FromContextOrDiscard(ctx).WithValues("cluster", clusterID, "operation", operation, "opID", opID)
	ctx = logr.NewContext(driver.WithOperationID(ctx, opID), logger)
	return ctx, release, nil
}

// run executes op through the driver and parses its output.
// A driver error always yields an unsuccessful outcome.
func (s *Service) run(ctx context.Context, op provisioning.Operation, args ...string) (outcome.Outcome, error) {
	logger := logr.FromContextOrDiscard(ctx)

	res, err := s.driver.Run(ctx, op, args)
	out := outcome.Parse(op, res.Output)
	if err != nil {
		logger.Error(err, "provisioning driver failed", "exitCode", res.ExitCode, "duration", res.Duration)
		out.Success = false
		return out, err
	}
	logger.V(1).Info("provisioning driver finished", "success", out.Success, "structured", out.Structured, "duration", res.Duration)
	return out, nil
}

// Start provisions the cluster with workersCount workers and returns the
// resulting status. On failure the empty status is returned; nothing is
// rolled back.
func (s *Service) Start(ctx context.Context, clusterID string, workersCount int) (ClusterStatus, error) {
	op := provisioning.OpStartCluster
	if workersCount < 1 {
		return emptyStatus(), fmt.Errorf("%w: workersCount must be at least 1, got %d", ErrInvalidArgument, workersCount)
	}

	ctx, release, err := s.begin(ctx, clusterID, op.String(), true)
	if err != nil {
		return emptyStatus(), err
	}
	defer release()

	logger := logr.FromContextOrDiscard(ctx)
	logger.Info("starting cluster", "workers", workersCount)
	start := time.Now()

	out, err := s.run(ctx, op, clusterID, strconv.Itoa(workersCount))
	if err != nil || !out.Success {
		s.recordOperation(clusterID, op.String(), resultFailure, time.Since(start))
		return emptyStatus(), &OperationError{Op: op, ClusterID: clusterID, Output: out.RawOutput, Err: err}
	}

	status := s.status(ctx, clusterID)
	s.recordOperation(clusterID, op.String(), resultSuccess, time.Since(start))
	logger.Info("cluster started", "workerCount", status.WorkerCount, "workerIp", out.WorkerIP)
	return status, nil
}

// Stop tears the cluster down. Success is decided by the driver output alone.
func (s *Service) Stop(ctx context.Context, clusterID string) error {
	op := provisioning.OpStopCluster
	ctx, release, err := s.begin(ctx, clusterID, op.String(), true)
	if err != nil {
		return err
	}
	defer release()

	logger := logr.FromContextOrDiscard(ctx)
	logger.Info("stopping cluster")
	start := time.Now()

	out, err := s.run(ctx, op, clusterID)
	if err != nil || !out.Success {
		s.recordOperation(clusterID, op.String(), resultFailure, time.Since(start))
		return &OperationError{Op: op, ClusterID: clusterID, Output: out.RawOutput, Err: err}
	}

	s.recordOperation(clusterID, op.String(), resultSuccess, time.Since(start))
	logger.Info("cluster stopped")
	return nil
}

// AddWorker provisions the next worker and returns its address.
func (s *Service) AddWorker(ctx context.Context, clusterID string) (string, error) {
	op := provisioning.OpAddWorker
	ctx, release, err := s.begin(ctx, clusterID, op.String(), true)
	if err != nil {
		return "", err
	}
	defer release()

	logger := logr.FromContextOrDiscard(ctx)
	logger.Info("adding worker node")
	start := time.Now()

	count, err := s.catalog.WorkerCount(ctx)
	if err != nil {
		s.recordOperation(clusterID, op.String(), resultFailure, time.Since(start))
		return "", fmt.Errorf("failed to count active workers: %w", err)
	}

	ip, err := s.provisionWorker(ctx, clusterID, count)
	if err != nil {
		s.recordOperation(clusterID, op.String(), resultFailure, time.Since(start))
		return "", err
	}

	s.recordOperation(clusterID, op.String(), resultSuccess, time.Since(start))
	s.recordWorkers(clusterID, count+1)
	return ip, nil
}

// provisionWorker runs the add operation targeting current+1 workers.
// The caller must hold the cluster slot.
func (s *Service) provisionWorker(ctx context.Context, clusterID string, current int) (string, error) {
	op := provisioning.OpAddWorker
	logger := logr.FromContextOrDiscard(ctx)
	target := current + 1

	out, err := s.run(ctx, op, clusterID, strconv.Itoa(target))
	if err != nil || !out.Success || out.WorkerIP == "" {
		if err == nil && out.Success {
			logger.Info("add worker reported success without a worker address")
		}
		return "", &OperationError{Op: op, ClusterID: clusterID, Output: out.RawOutput, Err: err}
	}

	logger.Info("new worker added and verified", "workerIp", out.WorkerIP, "target", target)
	return out.WorkerIP, nil
}

// RemoveWorker shrinks the cluster by one worker and returns the remaining
// count observed in the catalog afterwards. The last worker is never removed.
func (s *Service) RemoveWorker(ctx context.Context, clusterID string) (int, error) {
	op := provisioning.OpRemoveWorker
	ctx, release, err := s.begin(ctx, clusterID, op.String(), true)
	if err != nil {
		return 0, err
	}
	defer release()

	logger := logr.FromContextOrDiscard(ctx)
	logger.Info("removing worker node")
	start := time.Now()

	count, err := s.catalog.WorkerCount(ctx)
	if err != nil {
		s.recordOperation(clusterID, op.String(), resultFailure, time.Since(start))
		return 0, fmt.Errorf("failed to count active workers: %w", err)
	}
	if count <= 1 {
		logger.Info("cannot remove the last worker node", "workerCount", count)
		s.recordOperation(clusterID, op.String(), resultRejected, 0)
		return count, ErrLastWorker
	}

	target := count - 1
	logger.Info("removing workers", "keep", target)

	out, err := s.run(ctx, op, clusterID, strconv.Itoa(target))
	if err != nil || !out.Success {
		s.recordOperation(clusterID, op.String(), resultFailure, time.Since(start))
		return 0, &OperationError{Op: op, ClusterID: clusterID, Output: out.RawOutput, Err: err}
	}

	// The driver already changed the cluster; a failed or divergent
	// re-read is reported but does not fail the operation.
	remaining, err := s.catalog.WorkerCount(ctx)
	switch {
	case err != nil:
		logger.Error(err, "failed to verify remaining workers, assuming target", "expected", target)
		remaining = target
	case remaining != target:
		logger.Info("remaining worker count differs from target", "expected", target, "actual", remaining)
	}

	s.recordOperation(clusterID, op.String(), resultSuccess, time.Since(start))
	s.recordWorkers(clusterID, remaining)
	logger.Info("workers removed", "remaining", remaining)
	return remaining, nil
}

// Status returns the active workers of the cluster. It never fails: when the
// catalog is unreachable the empty status is returned with Degraded set.
func (s *Service) Status(ctx context.Context, clusterID string) ClusterStatus {
	logger := logr.FromContextOrDiscard(ctx).WithValues("cluster", clusterID)
	return s.status(logr.NewContext(ctx, logger), clusterID)
}

func (s *Service) status(ctx context.Context, clusterID string) ClusterStatus {
	workers, err := s.catalog.ActiveWorkers(ctx)
	if err != nil {
		logr.FromContextOrDiscard(ctx).Error(err, "failed to read cluster status")
		s.catalogDegraded.Store(true)
		s.recordCatalogUp(false)
		status := emptyStatus()
		status.Degraded = true
		return status
	}
	s.catalogDegraded.Store(false)
	s.recordCatalogUp(true)
	s.recordWorkers(clusterID, len(workers))

	if workers == nil {
		workers = []catalog.WorkerNode{}
	}
	return ClusterStatus{
		IsRunning:   len(workers) > 0,
		WorkerCount: len(workers),
		Workers:     workers,
	}
}

// CatalogDegraded reports whether the last status read fell back to the
// empty snapshot because the catalog could not be read.
func (s *Service) CatalogDegraded() bool {
	return s.catalogDegraded.Load()
}

// Workers returns the raw active worker rows. Unlike Status it reports
// catalog errors.
func (s *Service) Workers(ctx context.Context, clusterID string) ([]catalog.WorkerNode, error) {
	workers, err := s.catalog.ActiveWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch worker nodes for cluster %s: %w", clusterID, err)
	}
	if workers == nil {
		workers = []catalog.WorkerNode{}
	}
	return workers, nil
}
