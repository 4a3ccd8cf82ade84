package queue

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hunterops/nbrun/internal/log"
	"github.com/hunterops/nbrun/internal/model"
)

const descriptorGlob = "*.yaml"

// Watcher polls the queue directory and processes descriptors strictly
// sequentially. Exactly one watcher owns a queue directory; the claim
// rename is what keeps two sweeps off the same file.
type Watcher struct {
	cfg       model.Config
	engine    Engine
	detector  *FindingsDetector
	interrupt <-chan os.Signal
}

func NewWatcher(cfg model.Config, eng Engine, detector *FindingsDetector) *Watcher {
	return &Watcher{cfg: cfg, engine: eng, detector: detector}
}

// WithInterrupt subscribes the watcher to interrupt signals. A signal
// arriving during a sweep aborts the remainder of that sweep; a signal
// arriving while idle stops the watcher.
func (w *Watcher) WithInterrupt(ch <-chan os.Signal) *Watcher {
	w.interrupt = ch
	return w
}

// Run polls forever. It returns only when ctx is cancelled or an interrupt
// arrives between sweeps.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		w.Sweep(ctx)

		slog.DebugContext(ctx, "waiting for jobs", "interval", w.cfg.CheckInterval.String())
		select {
		case <-ctx.Done():
			return nil
		case <-w.interrupt:
			slog.InfoContext(ctx, "shutdown requested")
			return nil
		case <-time.After(w.cfg.CheckInterval):
		}
	}
}

// Sweep lists pending descriptors and runs one job per descriptor, in
// directory enumeration order. A failure of one job never aborts the sweep.
func (w *Watcher) Sweep(ctx context.Context) {
	matches, err := filepath.Glob(filepath.Join(w.cfg.QueuePath, descriptorGlob))
	if err != nil {
		slog.ErrorContext(ctx, "listing queue directory",
			"queue_path", w.cfg.QueuePath, "error", err)
		return
	}

	for _, descriptor := range matches {
		info, err := os.Stat(descriptor)
		if err != nil || !info.Mode().IsRegular() {
			continue // partial writes and symlink clutter are expected
		}

		select {
		case <-w.interrupt:
			slog.InfoContext(ctx, "shutdown requested: aborting current sweep")
			return
		case <-ctx.Done():
			return
		default:
		}

		w.process(ctx, descriptor)
	}
}

// process runs one descriptor through its full lifecycle. Construction
// itself is a failure point: claim, parse and validation errors land here
// too, not only Run errors.
func (w *Watcher) process(ctx context.Context, descriptor string) {
	slog.InfoContext(ctx, "job created", "descriptor", descriptor)

	job, err := NewJob(ctx, w.cfg, descriptor)
	if err != nil {
		attrs := []any{"descriptor", descriptor, "error", err}
		if job != nil {
			attrs = append(attrs, "job_id", job.ID(), "notebook", job.Notebook())
		}
		slog.ErrorContext(ctx, "job rejected", attrs...)
		return
	}

	ctx = log.ContextAttrs(ctx, slog.Group("job",
		slog.String("job_id", job.ID()),
		slog.String("notebook", job.Notebook()),
	))

	if err := job.Run(ctx, w.engine, w.detector); err != nil {
		slog.ErrorContext(ctx, "job failed",
			"job_id", job.ID(), "notebook", job.Notebook(), "error", err)
		return
	}
	slog.InfoContext(ctx, "job complete", "job_id", job.ID())
}
