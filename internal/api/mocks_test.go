package api

import (
	"context"
	"sync"

	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
	"github.com/VoxelHeimGame/db-cluster/internal/cluster"
)

// MockClusterService is a mock implementation of ClusterService for testing.
type MockClusterService struct {
	mu sync.Mutex

	StartFunc        func(ctx context.Context, clusterID string, workersCount int) (cluster.ClusterStatus, error)
	StopFunc         func(ctx context.Context, clusterID string) error
	AddWorkerFunc    func(ctx context.Context, clusterID string) (string, error)
	RemoveWorkerFunc func(ctx context.Context, clusterID string) (int, error)
	StatusFunc       func(ctx context.Context, clusterID string) cluster.ClusterStatus
	WorkersFunc      func(ctx context.Context, clusterID string) ([]catalog.WorkerNode, error)
	Degraded         bool

	// Call tracking
	StartCalls []StartCall
	Calls      []string
}

// StartCall tracks arguments to Start.
type StartCall struct {
	ClusterID    string
	WorkersCount int
}

func (m *MockClusterService) track(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockClusterService) Start(ctx context.Context, clusterID string, workersCount int) (cluster.ClusterStatus, error) {
	m.mu.Lock()
	m.StartCalls = append(m.StartCalls, StartCall{ClusterID: clusterID, WorkersCount: workersCount})
	m.mu.Unlock()
	m.track("Start")

	if m.StartFunc != nil {
		return m.StartFunc(ctx, clusterID, workersCount)
	}
	return cluster.ClusterStatus{}, nil
}

func (m *MockClusterService) Stop(ctx context.Context, clusterID string) error {
	m.track("Stop")
	if m.StopFunc != nil {
		return m.StopFunc(ctx, clusterID)
	}
	return nil
}

func (m *MockClusterService) AddWorker(ctx context.Context, clusterID string) (string, error) {
	m.track("AddWorker")
	if m.AddWorkerFunc != nil {
		return m.AddWorkerFunc(ctx, clusterID)
	}
	return "10.0.0.1", nil
}

func (m *MockClusterService) RemoveWorker(ctx context.Context, clusterID string) (int, error) {
	m.track("RemoveWorker")
	if m.RemoveWorkerFunc != nil {
		return m.RemoveWorkerFunc(ctx, clusterID)
	}
	return 1, nil
}

func (m *MockClusterService) Status(ctx context.Context, clusterID string) cluster.ClusterStatus {
	m.track("Status")
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, clusterID)
	}
	return cluster.ClusterStatus{Workers: []catalog.WorkerNode{}}
}

func (m *MockClusterService) Workers(ctx context.Context, clusterID string) ([]catalog.WorkerNode, error) {
	m.track("Workers")
	if m.WorkersFunc != nil {
		return m.WorkersFunc(ctx, clusterID)
	}
	return []catalog.WorkerNode{}, nil
}

func (m *MockClusterService) CatalogDegraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Degraded
}

// MockHealthChecker is a mock implementation of HealthChecker.
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) Ping(context.Context) error {
	return m.Err
}
