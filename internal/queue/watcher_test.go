package queue_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/hunterops/nbrun/internal/queue"

	"github.com/stretchr/testify/require"
)

// one job blowing up mid-sweep must not stop its neighbours, and the
// watcher must be able to sweep again afterwards
func TestSweepIsolation(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	writeDescriptor(t, cfg, "a.yaml", descriptorFor("alpha.ipynb"))
	writeDescriptor(t, cfg, "b.yaml", descriptorFor("broken.ipynb"))
	writeDescriptor(t, cfg, "c.yaml", descriptorFor("gamma.ipynb"))

	eng := &fakeEngine{failFor: map[string]error{"broken.ipynb": errors.New("cell raised")}}
	w := queue.NewWatcher(cfg, eng, nil)

	w.Sweep(t.Context())

	require.Len(t, eng.calls, 3)
	require.Empty(t, queueFiles(t, cfg, "*.yaml"))
	require.Len(t, queueFiles(t, cfg, "*.job"), 2)
	require.Len(t, queueFiles(t, cfg, "*.tmp"), 1) // the failed job's durable record

	// the loop keeps going: a later sweep still processes new work
	writeDescriptor(t, cfg, "d.yaml", descriptorFor("delta.ipynb"))
	w.Sweep(t.Context())

	require.Len(t, eng.calls, 4)
	require.Len(t, queueFiles(t, cfg, "*.job"), 3)
}

// construction failures (parse, validation) are isolated the same way
func TestSweepIsolatesRejectedJobs(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	writeDescriptor(t, cfg, "a.yaml", "papermill: {}\nexec:\n  notebook: x.ipynb\n")
	writeDescriptor(t, cfg, "b.yaml", descriptorFor("beta.ipynb"))

	eng := &fakeEngine{}
	w := queue.NewWatcher(cfg, eng, nil)
	w.Sweep(t.Context())

	// the rejected job never reached the engine, the valid one completed
	require.Len(t, eng.calls, 1)
	require.Len(t, queueFiles(t, cfg, "*.job"), 1)
	require.Len(t, queueFiles(t, cfg, "*.tmp"), 1)
}

func TestSweepSkipsNonRegularFiles(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	require.NoError(t, os.Mkdir(filepath.Join(cfg.QueuePath, "clutter.yaml"), 0o755))
	writeDescriptor(t, cfg, "real.yaml", descriptorFor("hunt.ipynb"))

	eng := &fakeEngine{}
	w := queue.NewWatcher(cfg, eng, nil)
	w.Sweep(t.Context())

	require.Len(t, eng.calls, 1)
	require.DirExists(t, filepath.Join(cfg.QueuePath, "clutter.yaml"))
}

// an interrupt aborts the remainder of the sweep, claimed work is kept
func TestSweepInterrupt(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	writeDescriptor(t, cfg, "a.yaml", descriptorFor("alpha.ipynb"))
	writeDescriptor(t, cfg, "b.yaml", descriptorFor("beta.ipynb"))

	interrupts := make(chan os.Signal, 1)
	interrupts <- syscall.SIGINT

	eng := &fakeEngine{}
	w := queue.NewWatcher(cfg, eng, nil).WithInterrupt(interrupts)
	w.Sweep(t.Context())

	require.Empty(t, eng.calls)
	require.Len(t, queueFiles(t, cfg, "*.yaml"), 2)
}

// Run returns on context cancellation between sweeps
func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	eng := &fakeEngine{}
	w := queue.NewWatcher(cfg, eng, nil)

	ctx, cancel := context.WithCancel(t.Context())

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = w.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	wg.Wait()
	require.NoError(t, runErr)
}

// Run returns on an interrupt arriving while idle
func TestRunStopsOnIdleInterrupt(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.CheckInterval = time.Minute // stay idle long enough to catch the signal

	interrupts := make(chan os.Signal, 1)
	w := queue.NewWatcher(cfg, &fakeEngine{}, nil).WithInterrupt(interrupts)

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = w.Run(t.Context())
	}()

	interrupts <- syscall.SIGINT
	wg.Wait()
	require.NoError(t, runErr)
}
