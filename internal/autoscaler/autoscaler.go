package autoscaler

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
	"github.com/VoxelHeimGame/db-cluster/internal/cluster"
	"github.com/VoxelHeimGame/db-cluster/internal/config"
)

// LoadSampler samples cluster load.
type LoadSampler interface {
	SampleLoad(ctx context.Context) (catalog.LoadSample, error)
}

// Scaler adds one worker to a cluster.
type Scaler interface {
	ScaleOut(ctx context.Context, clusterID string, observed int) (cluster.ScaleOutResult, error)
}

// Autoscaler evaluates the scaling policy on a fixed interval.
type Autoscaler struct {
	sampler   LoadSampler
	scaler    Scaler
	clusterID string
	policy    config.ScalingPolicy

	clock         clock.WithTicker
	enableMetrics bool
}

// Option configures an Autoscaler.
type Option func(*Autoscaler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.WithTicker) Option {
	return func(a *Autoscaler) { a.clock = c }
}

// WithMetrics enables Prometheus metrics recording.
func WithMetrics(enabled bool) Option {
	return func(a *Autoscaler) { a.enableMetrics = enabled }
}

// New creates an Autoscaler for clusterID.
func New(sampler LoadSampler, scaler Scaler, clusterID string, policy config.ScalingPolicy, opts ...Option) (*Autoscaler, error) {
	if policy.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive, got %s", policy.CheckInterval)
	}
	if err := cluster.ValidateID(clusterID); err != nil {
		return nil, err
	}
	a := &Autoscaler{
		sampler:   sampler,
		scaler:    scaler,
		clusterID: clusterID,
		policy:    policy,
		clock:     clock.RealClock{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run ticks until ctx is cancelled.
func (a *Autoscaler) Run(ctx context.Context) {
	logger := logr.FromContextOrDiscard(ctx).WithName("autoscaler").WithValues("cluster", a.clusterID)
	ctx = logr.NewContext(ctx, logger)

	logger.Info("starting auto-scaling service",
		"interval", a.policy.CheckInterval,
		"maxConnectionsPerNode", a.policy.MaxConnectionsPerNode,
		"maxWorkers", a.policy.MaxWorkers)

	ticker := a.clock.NewTicker(a.policy.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping auto-scaling service")
			return
		case <-ticker.C():
			a.Tick(ctx)
		}
	}
}

// Tick runs one check. It never fails; the returned decision describes what
// was evaluated and is zero when the catalog could not be sampled.
func (a *Autoscaler) Tick(ctx context.Context) Decision {
	logger := logr.FromContextOrDiscard(ctx)

	sample, err := a.sampler.SampleLoad(ctx)
	if err != nil {
		logger.Error(err, "error in auto-scaling, failed to sample load")
		a.recordTick(tickError)
		return Decision{}
	}

	d := Decide(a.policy, sample)
	a.recordAvgConnections(d.AvgConnectionsPerNode)
	logger.V(1).Info("evaluated load",
		"workers", sample.WorkerCount,
		"connections", sample.TotalConnections,
		"avgConnectionsPerNode", d.AvgConnectionsPerNode,
		"scaleOut", d.ScaleOut,
		"reason", d.Reason)

	if !d.ScaleOut {
		if sample.WorkerCount <= 0 {
			a.recordTick(tickGuarded)
		} else {
			a.recordTick(tickIdle)
		}
		return d
	}

	logger.Info("high load detected, adding new worker node", "avgConnectionsPerNode", d.AvgConnectionsPerNode)
	res, err := a.scaler.ScaleOut(ctx, a.clusterID, sample.WorkerCount)
	switch {
	case errors.Is(err, cluster.ErrClusterBusy):
		logger.Info("cluster busy, skipping scale-out until next tick")
		a.recordTick(tickBusy)
	case errors.Is(err, cluster.ErrStaleObservation):
		logger.Info("worker count changed during tick, skipping scale-out", "reason", err.Error())
		a.recordTick(tickStale)
	case err != nil:
		logger.Error(err, "error in auto-scaling")
		a.recordTick(tickError)
	default:
		logger.Info("added new worker node and rebalanced shards", "host", res.Host, "ordinal", res.Ordinal)
		a.recordTick(tickScaled)
	}
	return d
}
