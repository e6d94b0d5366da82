package cluster

import (
	"context"
	"fmt"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sync/semaphore"
)

// slots holds one exclusive execution slot per cluster ID.
// Slots are created on first use and never removed.
type slots struct {
	table cmap.ConcurrentMap[string, *semaphore.Weighted]
}

func newSlots() *slots {
	return &slots{table: cmap.New[*semaphore.Weighted]()}
}

func (s *slots) get(clusterID string) *semaphore.Weighted {
	return s.table.Upsert(clusterID, nil, func(exist bool, inMap, _ *semaphore.Weighted) *semaphore.Weighted {
		if exist {
			return inMap
		}
		return semaphore.NewWeighted(1)
	})
}

// acquire waits up to wait for the slot of clusterID.
// A non-positive wait fails fast.
func (s *slots) acquire(ctx context.Context, clusterID string, wait time.Duration) (func(), error) {
	sem := s.get(clusterID)
	if sem.TryAcquire(1) {
		return func() { sem.Release(1) }, nil
	}
	if wait <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrClusterBusy, clusterID)
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s (waited %s)", ErrClusterBusy, clusterID, wait)
	}
	return func() { sem.Release(1) }, nil
}

// tryAcquire takes the slot of clusterID only if it is free.
func (s *slots) tryAcquire(clusterID string) (func(), bool) {
	sem := s.get(clusterID)
	if !sem.TryAcquire(1) {
		return nil, false
	}
	return func() { sem.Release(1) }, true
}
