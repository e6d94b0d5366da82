package testing

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
	"github.com/VoxelHeimGame/db-cluster/internal/provisioning"
	"github.com/VoxelHeimGame/db-cluster/internal/provisioning/driver"
)

// FakeDriver is a driver.Driver that simulates the provisioning scripts.
// Start, stop, add and remove mutate the attached FakeCatalog the way the
// real scripts mutate the Citus registry, and print the scripts' markers.
type FakeDriver struct {
	mu      sync.Mutex
	catalog *FakeCatalog
	nextIP  int

	// Delay simulates script run time. It honours context cancellation.
	Delay time.Duration
	// RunFunc overrides the simulation.
	RunFunc func(ctx context.Context, op provisioning.Operation, args []string) (driver.Result, error)

	// Call tracking
	Calls []DriverCall
}

// DriverCall tracks arguments to Run.
type DriverCall struct {
	Op          provisioning.Operation
	Args        []string
	OperationID string
}

// NewFakeDriver returns a driver simulating scripts against cat.
func NewFakeDriver(cat *FakeCatalog) *FakeDriver {
	return &FakeDriver{catalog: cat, nextIP: len(cat.Workers())}
}

// CallsSnapshot returns a copy of the recorded calls.
func (d *FakeDriver) CallsSnapshot() []DriverCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DriverCall(nil), d.Calls...)
}

func (d *FakeDriver) Run(ctx context.Context, op provisioning.Operation, args []string) (driver.Result, error) {
	d.mu.Lock()
	d.Calls = append(d.Calls, DriverCall{Op: op, Args: append([]string(nil), args...), OperationID: driver.OperationID(ctx)})
	d.mu.Unlock()

	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return driver.Result{ExitCode: -1}, fmt.Errorf("%w: %s", driver.ErrTimeout, op)
		}
	}

	if d.RunFunc != nil {
		return d.RunFunc(ctx, op, args)
	}
	return d.simulate(op, args)
}

func (d *FakeDriver) simulate(op provisioning.Operation, args []string) (driver.Result, error) {
	if len(args) == 0 {
		return driver.Result{ExitCode: 2}, fmt.Errorf("%w: missing cluster id", driver.ErrCommandFailed)
	}
	clusterID := args[0]

	switch op {
	case provisioning.OpStartCluster:
		n, err := countArg(args)
		if err != nil {
			return driver.Result{ExitCode: 2}, err
		}
		d.catalog.SetWorkers(n)
		d.mu.Lock()
		d.nextIP = n
		d.mu.Unlock()
		ips := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			ips = append(ips, WorkerAddress(i))
		}
		return driver.Result{Output: StartOutput(clusterID, ips...)}, nil

	case provisioning.OpStopCluster:
		d.catalog.SetWorkers(0)
		return driver.Result{Output: StopOutput(clusterID)}, nil

	case provisioning.OpAddWorker:
		d.mu.Lock()
		d.nextIP++
		ip := WorkerAddress(d.nextIP)
		d.mu.Unlock()
		d.catalog.register(catalog.WorkerNode{Name: ip, Port: 5432})
		return driver.Result{Output: AddWorkerOutput(ip)}, nil

	case provisioning.OpRemoveWorker:
		keep, err := countArg(args)
		if err != nil {
			return driver.Result{ExitCode: 2}, err
		}
		d.catalog.truncate(keep)
		return driver.Result{Output: RemoveWorkerOutput(keep)}, nil
	}
	return driver.Result{ExitCode: 127}, fmt.Errorf("%w: %w %q", driver.ErrCommandFailed, provisioning.ErrUnknownOperation, op)
}

func countArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%w: missing worker count", driver.ErrCommandFailed)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", driver.ErrCommandFailed, err)
	}
	return n, nil
}
