package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hunterops/nbrun/internal/model"
)

// Engine executes a parameterized notebook and writes the executed artifact
// to output. Implemented by engine.Papermill.
type Engine interface {
	Execute(ctx context.Context, input, output string, parameters map[string]any, opts model.ExecOptions) error
}

// Job owns one descriptor from claim to its terminal state. A Job is used
// by a single watcher sweep and never shared or reused.
type Job struct {
	cfg    model.Config
	id     string
	start  time.Time
	outDir string
	params model.NotebookParams
}

// NewJob claims the descriptor (rename to <job_id>.tmp in the queue
// directory), parses and validates it. When validation rejects the job, the
// Job is returned together with the error so the caller can log its
// identity; the working file stays under its claimed name as the durable
// failure record.
func NewJob(ctx context.Context, cfg model.Config, descriptor string) (*Job, error) {
	j := &Job{
		cfg:   cfg,
		id:    uuid.NewString(),
		start: time.Now().UTC(),
	}

	var err error
	j.outDir, err = OutputDir(cfg.OutputPath, j.start, cfg.OutputDiv)
	if err != nil {
		return nil, err
	}

	j.params, err = j.claim(descriptor)
	if err != nil {
		return nil, err
	}

	if err := j.params.Validate(ctx, cfg.NotebookPath); err != nil {
		return j, fmt.Errorf("validating %s: %w", descriptor, err)
	}
	return j, nil
}

// claim renames the descriptor to the job's working file and parses it.
// The rename is the mutual exclusion primitive: whoever wins the rename
// owns the file, a loser gets an error from the OS.
func (j *Job) claim(descriptor string) (model.NotebookParams, error) {
	working := filepath.Join(filepath.Dir(descriptor), j.id+".tmp")
	if err := os.Rename(descriptor, working); err != nil {
		return model.NotebookParams{}, fmt.Errorf("claiming %s: %w", descriptor, err)
	}

	body, err := os.ReadFile(working)
	if err != nil {
		return model.NotebookParams{}, fmt.Errorf("reading %s: %w", working, err)
	}

	params, err := model.ParseParams(body, j.id, descriptor, working)
	if err != nil {
		return model.NotebookParams{}, fmt.Errorf("parsing %s: %w", working, err)
	}
	return params, nil
}

func (j *Job) ID() string { return j.id }

// Notebook is the name of the notebook to execute, relative to nb_path.
func (j *Job) Notebook() string { return j.params.Exec.Notebook }

// WorkingFile is the claimed descriptor path, owned by this job.
func (j *Job) WorkingFile() string { return j.params.WorkingFile }

// InputPath is the full path of the notebook to execute.
func (j *Job) InputPath() string {
	return filepath.Join(j.cfg.NotebookPath, j.params.Exec.Notebook)
}

// OutputName is <stem>-<identifier>-<start time>.ipynb with empty segments
// dropped: filesystem safe, human traceable and collision resistant under
// rapid repeated runs of the same notebook.
func (j *Job) OutputName() string {
	base := filepath.Base(j.params.Exec.Notebook)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	parts := []string{stem}
	if j.params.Identifier != "" {
		parts = append(parts, j.params.Identifier)
	}
	parts = append(parts, jobTime(j.start))
	return strings.Join(parts, "-") + ".ipynb"
}

// OutputPath is the full path of the executed notebook artifact.
func (j *Job) OutputPath() string {
	return filepath.Join(j.outDir, j.OutputName())
}

var timeSanitizer = strings.NewReplacer(":", "-", ".", "-")

func jobTime(t time.Time) string {
	return timeSanitizer.Replace(t.Format(time.RFC3339Nano))
}

// Run executes the notebook, inspects the artifact for findings and renames
// the working file to the completed marker. On any error the working file
// stays under its claimed name and the error propagates to the watcher.
func (j *Job) Run(ctx context.Context, eng Engine, detector *FindingsDetector) error {
	slog.InfoContext(ctx, "job run started",
		"input", j.Notebook(), "output", j.OutputName())

	err := eng.Execute(ctx, j.InputPath(), j.OutputPath(), j.params.Papermill, j.params.Exec.Options)
	if err != nil {
		return err
	}

	if detector != nil {
		if err := detector.Inspect(ctx, j.OutputPath()); err != nil {
			return err
		}
	}

	marker := completedMarker(j.params.WorkingFile, j.OutputName())
	if err := os.Rename(j.params.WorkingFile, marker); err != nil {
		return fmt.Errorf("archiving job file: %w", err)
	}

	slog.InfoContext(ctx, "job run complete",
		"input", j.Notebook(), "output", j.OutputName())
	return nil
}

// completedMarker is <output notebook stem>.job next to the working file.
func completedMarker(workingFile, outputName string) string {
	stem := strings.TrimSuffix(outputName, filepath.Ext(outputName))
	return filepath.Join(filepath.Dir(workingFile), stem+".job")
}
