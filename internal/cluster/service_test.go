package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
	"github.com/VoxelHeimGame/db-cluster/internal/provisioning"
	"github.com/VoxelHeimGame/db-cluster/internal/provisioning/driver"
	testutil "github.com/VoxelHeimGame/db-cluster/internal/testing"
)

func newTestService(workers int, opts ...Option) (*Service, *testutil.FakeCatalog, *testutil.FakeDriver) {
	cat := testutil.NewFakeCatalog(workers)
	drv := testutil.NewFakeDriver(cat)
	return NewService(cat, drv, opts...), cat, drv
}

func output(out string) func(context.Context, provisioning.Operation, []string) (driver.Result, error) {
	return func(context.Context, provisioning.Operation, []string) (driver.Result, error) {
		return driver.Result{Output: out}, nil
	}
}

func TestService_Start(t *testing.T) {
	t.Parallel()

	t.Run("success returns catalog status", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(0, WithOperationIDs(func() string { return "op-1" }))

		status, err := svc.Start(testutil.TestContext(t), "demo", 2)
		require.NoError(t, err)

		assert.True(t, status.IsRunning)
		assert.Equal(t, 2, status.WorkerCount)
		assert.Len(t, status.Workers, 2)
		assert.False(t, status.Degraded)

		calls := drv.CallsSnapshot()
		require.Len(t, calls, 1)
		assert.Equal(t, provisioning.OpStartCluster, calls[0].Op)
		assert.Equal(t, []string{"demo", "2"}, calls[0].Args)
		assert.Equal(t, "op-1", calls[0].OperationID)
	})

	t.Run("missing markers fails with empty status", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(0)
		drv.RunFunc = output("Starting Citus cluster demo...\nError: port already allocated\n")

		status, err := svc.Start(testutil.TestContext(t), "demo", 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOperationFailed)
		assert.Equal(t, emptyStatus(), status)

		var opErr *OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "Failed to start cluster demo", opErr.Message())
		assert.Contains(t, opErr.Output, "port already allocated")
	})

	t.Run("banner without completion marker fails", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(0)
		drv.RunFunc = output("🎉 Citus Cluster demo is starting\n")

		_, err := svc.Start(testutil.TestContext(t), "demo", 1)
		assert.ErrorIs(t, err, ErrOperationFailed)
	})

	t.Run("driver timeout", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(0)
		drv.RunFunc = func(context.Context, provisioning.Operation, []string) (driver.Result, error) {
			return driver.Result{ExitCode: -1}, fmt.Errorf("%w: start_cluster.sh", driver.ErrTimeout)
		}

		status, err := svc.Start(testutil.TestContext(t), "demo", 3)
		assert.ErrorIs(t, err, ErrOperationFailed)
		assert.ErrorIs(t, err, driver.ErrTimeout)
		assert.False(t, status.IsRunning)
	})

	t.Run("rejects non-positive worker count", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(0)

		_, err := svc.Start(testutil.TestContext(t), "demo", 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Empty(t, drv.CallsSnapshot())
	})
}

func TestService_Stop(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		svc, cat, drv := newTestService(3)

		require.NoError(t, svc.Stop(testutil.TestContext(t), "demo"))
		assert.Empty(t, cat.Workers())
		calls := drv.CallsSnapshot()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"demo"}, calls[0].Args)
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(3)
		drv.RunFunc = output("Citus Cluster demo could not be stopped\n")

		err := svc.Stop(testutil.TestContext(t), "demo")
		require.Error(t, err)
		var opErr *OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "Failed to stop cluster demo", opErr.Message())
	})
}

func TestService_AddWorker(t *testing.T) {
	t.Parallel()

	t.Run("increments status by one", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(2)
		ctx := testutil.TestContext(t)

		before := svc.Status(ctx, "demo")
		ip, err := svc.AddWorker(ctx, "demo")
		require.NoError(t, err)
		after := svc.Status(ctx, "demo")

		assert.Equal(t, testutil.WorkerAddress(3), ip)
		assert.Equal(t, before.WorkerCount+1, after.WorkerCount)

		calls := drv.CallsSnapshot()
		require.Len(t, calls, 1)
		assert.Equal(t, provisioning.OpAddWorker, calls[0].Op)
		assert.Equal(t, []string{"demo", "3"}, calls[0].Args)
	})

	t.Run("failure marker takes precedence", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(2)
		drv.RunFunc = output(testutil.AddWorkerRegisterFailedOutput("172.18.0.13"))

		ip, err := svc.AddWorker(testutil.TestContext(t), "demo")
		assert.ErrorIs(t, err, ErrOperationFailed)
		assert.Empty(t, ip)
	})

	t.Run("success without address fails", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(2)
		drv.RunFunc = output("Worker(s) added and registered to the Citus cluster successfully\n")

		_, err := svc.AddWorker(testutil.TestContext(t), "demo")
		require.Error(t, err)
		var opErr *OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "Failed to start new worker for cluster demo", opErr.Message())
	})

	t.Run("structured trailer wins over markers", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(2)
		drv.RunFunc = output("Failed to register worker 10.0.0.9\nDBCLUSTER_RESULT {\"success\":true,\"workerIp\":\"10.0.0.9\"}\n")

		ip, err := svc.AddWorker(testutil.TestContext(t), "demo")
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.9", ip)
	})

	t.Run("catalog error aborts before provisioning", func(t *testing.T) {
		t.Parallel()
		svc, cat, drv := newTestService(2)
		cat.SetError(errors.New("connection refused"))

		_, err := svc.AddWorker(testutil.TestContext(t), "demo")
		assert.ErrorIs(t, err, catalog.ErrUnavailable)
		assert.Empty(t, drv.CallsSnapshot())
	})
}

func TestService_RemoveWorker(t *testing.T) {
	t.Parallel()

	for n := 2; n <= 5; n++ {
		t.Run(fmt.Sprintf("%d workers", n), func(t *testing.T) {
			t.Parallel()
			svc, cat, drv := newTestService(n)

			remaining, err := svc.RemoveWorker(testutil.TestContext(t), "demo")
			require.NoError(t, err)
			assert.Equal(t, n-1, remaining)
			assert.Len(t, cat.Workers(), n-1)

			calls := drv.CallsSnapshot()
			require.Len(t, calls, 1)
			assert.Equal(t, []string{"demo", fmt.Sprint(n - 1)}, calls[0].Args)
		})
	}

	for _, n := range []int{0, 1} {
		t.Run(fmt.Sprintf("guard with %d workers", n), func(t *testing.T) {
			t.Parallel()
			svc, cat, drv := newTestService(n)

			_, err := svc.RemoveWorker(testutil.TestContext(t), "demo")
			assert.ErrorIs(t, err, ErrLastWorker)
			assert.Empty(t, drv.CallsSnapshot())
			assert.Len(t, cat.Workers(), n)
			assert.Empty(t, cat.AddNodeCallsSnapshot())
		})
	}

	t.Run("mismatch reports observed count", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(4)
		drv.RunFunc = output(testutil.RemoveWorkerOutput(3))

		remaining, err := svc.RemoveWorker(testutil.TestContext(t), "demo")
		require.NoError(t, err)
		assert.Equal(t, 4, remaining)
	})

	t.Run("failed re-read assumes target", func(t *testing.T) {
		t.Parallel()
		svc, cat, _ := newTestService(3)
		var mu sync.Mutex
		reads := 0
		cat.WorkerCountFunc = func(context.Context) (int, error) {
			mu.Lock()
			defer mu.Unlock()
			reads++
			if reads == 1 {
				return 3, nil
			}
			return 0, catalog.ErrUnavailable
		}

		remaining, err := svc.RemoveWorker(testutil.TestContext(t), "demo")
		require.NoError(t, err)
		assert.Equal(t, 2, remaining)
	})

	t.Run("driver failure", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(3)
		drv.RunFunc = output("Error: container worker-3 not found\n")

		_, err := svc.RemoveWorker(testutil.TestContext(t), "demo")
		require.Error(t, err)
		var opErr *OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "Failed to remove workers from cluster demo", opErr.Message())
	})
}

func TestService_Status(t *testing.T) {
	t.Parallel()

	t.Run("reports active workers", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(2)

		status := svc.Status(testutil.TestContext(t), "demo")
		assert.True(t, status.IsRunning)
		assert.Equal(t, 2, status.WorkerCount)
		assert.Equal(t, catalog.WorkerNode{Name: testutil.WorkerAddress(1), Port: 5432}, status.Workers[0])
	})

	t.Run("empty cluster is not running", func(t *testing.T) {
		t.Parallel()
		svc, _, _ := newTestService(0)

		status := svc.Status(testutil.TestContext(t), "demo")
		assert.False(t, status.IsRunning)
		assert.Equal(t, 0, status.WorkerCount)
		assert.NotNil(t, status.Workers)
		assert.False(t, status.Degraded)
	})

	t.Run("fails open on catalog error", func(t *testing.T) {
		t.Parallel()
		svc, cat, _ := newTestService(2)
		cat.SetError(errors.New("connection refused"))

		status := svc.Status(testutil.TestContext(t), "demo")
		assert.False(t, status.IsRunning)
		assert.Equal(t, 0, status.WorkerCount)
		assert.Empty(t, status.Workers)
		assert.True(t, status.Degraded)

		data, err := json.Marshal(status)
		require.NoError(t, err)
		assert.JSONEq(t, `{"isRunning":false,"workerCount":0,"workers":[],"degraded":true}`, string(data))
	})

	t.Run("catalog degraded follows the last read", func(t *testing.T) {
		t.Parallel()
		svc, cat, _ := newTestService(2)
		assert.False(t, svc.CatalogDegraded())

		cat.SetError(errors.New("connection refused"))
		svc.Status(testutil.TestContext(t), "demo")
		assert.True(t, svc.CatalogDegraded())

		cat.SetError(nil)
		svc.Status(testutil.TestContext(t), "demo")
		assert.False(t, svc.CatalogDegraded())
	})
}

func TestService_Workers(t *testing.T) {
	t.Parallel()

	svc, cat, _ := newTestService(1)
	ctx := testutil.TestContext(t)

	workers, err := svc.Workers(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, workers, 1)

	cat.SetError(errors.New("boom"))
	_, err = svc.Workers(ctx, "demo")
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
}

func TestService_InvalidClusterID(t *testing.T) {
	t.Parallel()
	svc, _, drv := newTestService(2)
	ctx := testutil.TestContext(t)

	_, err := svc.AddWorker(ctx, "../etc")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	err = svc.Stop(ctx, "demo; rm -rf /")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, drv.CallsSnapshot())
}

func TestService_ConcurrentAddsTargetDistinctOrdinals(t *testing.T) {
	t.Parallel()

	svc, cat, drv := newTestService(2)
	drv.Delay = 50 * time.Millisecond
	ctx := testutil.TestContext(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.AddWorker(ctx, "demo")
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var targets []string
	for _, c := range drv.CallsSnapshot() {
		targets = append(targets, c.Args[1])
	}
	sort.Strings(targets)
	assert.Equal(t, []string{"3", "4"}, targets)
	assert.Len(t, cat.Workers(), 4)
}

func TestService_BusyCluster(t *testing.T) {
	t.Parallel()

	t.Run("fails fast without lock wait", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(3, WithLockWait(0))
		drv.Delay = 300 * time.Millisecond
		ctx := testutil.TestContext(t)

		done := make(chan error, 1)
		go func() {
			_, err := svc.AddWorker(ctx, "demo")
			done <- err
		}()
		require.Eventually(t, func() bool { return len(drv.CallsSnapshot()) == 1 }, time.Second, 5*time.Millisecond)

		_, err := svc.RemoveWorker(ctx, "demo")
		assert.ErrorIs(t, err, ErrClusterBusy)

		// Other clusters have their own slot.
		require.NoError(t, svc.Stop(ctx, "other"))

		require.NoError(t, <-done)
	})

	t.Run("gives up after lock wait", func(t *testing.T) {
		t.Parallel()
		svc, _, drv := newTestService(3, WithLockWait(20*time.Millisecond))
		drv.Delay = 300 * time.Millisecond
		ctx := testutil.TestContext(t)

		done := make(chan error, 1)
		go func() {
			done <- svc.Stop(ctx, "demo")
		}()
		require.Eventually(t, func() bool { return len(drv.CallsSnapshot()) == 1 }, time.Second, 5*time.Millisecond)

		_, err := svc.Start(ctx, "demo", 2)
		assert.ErrorIs(t, err, ErrClusterBusy)
		require.NoError(t, <-done)
	})
}

func TestService_CallerCancellationDoesNotAbortScript(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), driver.ScriptDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	finished := filepath.Join(dir, "finished")
	script := "sleep 1\ntouch finished\necho '🎉 Citus Cluster demo started successfully'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "start_cluster.sh"), []byte(script), 0o755))

	drv, err := driver.NewScriptDriver(dir, "sh", 10*time.Second)
	require.NoError(t, err)
	svc := NewService(testutil.NewFakeCatalog(0), drv)

	ctx, cancel := context.WithCancel(testutil.TestContext(t))
	defer cancel()
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	_, err = svc.Start(ctx, "demo", 2)
	require.NoError(t, err)
	assert.FileExists(t, finished, "script must run to completion after the caller goes away")
}

func TestService_CancelledWhileWaitingForSlot(t *testing.T) {
	t.Parallel()

	svc, _, drv := newTestService(2)
	drv.Delay = 300 * time.Millisecond

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.AddWorker(testutil.TestContext(t), "demo")
	}()
	require.Eventually(t, func() bool { return len(drv.CallsSnapshot()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(testutil.TestContext(t))
	cancel()
	err := svc.Stop(ctx, "demo")
	require.ErrorIs(t, err, context.Canceled)
	<-done
	assert.Len(t, drv.CallsSnapshot(), 1)
}
