package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
)

// FakeCatalog is an in-memory catalog.Catalog.
// The ...Func fields override the default behaviour of each method.
type FakeCatalog struct {
	mu          sync.Mutex
	workers     []catalog.WorkerNode
	connections int
	err         error

	PingFunc            func(ctx context.Context) error
	ActiveWorkersFunc   func(ctx context.Context) ([]catalog.WorkerNode, error)
	WorkerCountFunc     func(ctx context.Context) (int, error)
	SampleLoadFunc      func(ctx context.Context) (catalog.LoadSample, error)
	AddNodeFunc         func(ctx context.Context, host string, port int) error
	RebalanceShardsFunc func(ctx context.Context) error

	// Call tracking
	AddNodeCalls         []AddNodeCall
	RebalanceShardsCalls int
	WorkerCountCalls     int
}

// AddNodeCall tracks arguments to AddNode.
type AddNodeCall struct {
	Host string
	Port int
}

// NewFakeCatalog returns a catalog with n registered workers.
func NewFakeCatalog(n int) *FakeCatalog {
	c := &FakeCatalog{}
	c.SetWorkers(n)
	return c
}

// WorkerAddress returns the address the fakes use for the i-th worker.
func WorkerAddress(i int) string {
	return fmt.Sprintf("172.18.0.%d", 10+i)
}

// SetWorkers replaces the registry with n workers.
func (c *FakeCatalog) SetWorkers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workers = make([]catalog.WorkerNode, 0, n)
	for i := 1; i <= n; i++ {
		c.workers = append(c.workers, catalog.WorkerNode{Name: WorkerAddress(i), Port: 5432})
	}
}

// SetConnections sets the total connection count reported by SampleLoad.
func (c *FakeCatalog) SetConnections(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections = n
}

// SetError makes every method without an override fail with err.
// A nil err restores normal behaviour.
func (c *FakeCatalog) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Workers returns a copy of the registry.
func (c *FakeCatalog) Workers() []catalog.WorkerNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]catalog.WorkerNode(nil), c.workers...)
}

// register appends a worker. Used by FakeDriver.
func (c *FakeCatalog) register(node catalog.WorkerNode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workers = append(c.workers, node)
}

// truncate keeps the first n workers. Used by FakeDriver.
func (c *FakeCatalog) truncate(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < len(c.workers) {
		c.workers = c.workers[:n]
	}
}

func (c *FakeCatalog) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", catalog.ErrUnavailable, c.err)
}

func (c *FakeCatalog) Ping(ctx context.Context) error {
	if c.PingFunc != nil {
		return c.PingFunc(ctx)
	}
	return c.failure()
}

func (c *FakeCatalog) ActiveWorkers(ctx context.Context) ([]catalog.WorkerNode, error) {
	if c.ActiveWorkersFunc != nil {
		return c.ActiveWorkersFunc(ctx)
	}
	if err := c.failure(); err != nil {
		return nil, err
	}
	return c.Workers(), nil
}

func (c *FakeCatalog) WorkerCount(ctx context.Context) (int, error) {
	c.mu.Lock()
	c.WorkerCountCalls++
	c.mu.Unlock()

	if c.WorkerCountFunc != nil {
		return c.WorkerCountFunc(ctx)
	}
	if err := c.failure(); err != nil {
		return 0, err
	}
	return len(c.Workers()), nil
}

func (c *FakeCatalog) SampleLoad(ctx context.Context) (catalog.LoadSample, error) {
	if c.SampleLoadFunc != nil {
		return c.SampleLoadFunc(ctx)
	}
	if err := c.failure(); err != nil {
		return catalog.LoadSample{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return catalog.LoadSample{WorkerCount: len(c.workers), TotalConnections: c.connections}, nil
}

func (c *FakeCatalog) AddNode(ctx context.Context, host string, port int) error {
	c.mu.Lock()
	c.AddNodeCalls = append(c.AddNodeCalls, AddNodeCall{Host: host, Port: port})
	c.mu.Unlock()

	if c.AddNodeFunc != nil {
		return c.AddNodeFunc(ctx, host, port)
	}
	if err := c.failure(); err != nil {
		return err
	}
	c.register(catalog.WorkerNode{Name: host, Port: port})
	return nil
}

func (c *FakeCatalog) RebalanceShards(ctx context.Context) error {
	c.mu.Lock()
	c.RebalanceShardsCalls++
	c.mu.Unlock()

	if c.RebalanceShardsFunc != nil {
		return c.RebalanceShardsFunc(ctx)
	}
	return c.failure()
}

// AddNodeCallsSnapshot returns a copy of the AddNode calls.
func (c *FakeCatalog) AddNodeCallsSnapshot() []AddNodeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]AddNodeCall(nil), c.AddNodeCalls...)
}

// RebalanceCount returns the number of RebalanceShards calls.
func (c *FakeCatalog) RebalanceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.RebalanceShardsCalls
}
