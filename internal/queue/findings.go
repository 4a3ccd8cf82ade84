package queue

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hunterops/nbrun/internal/model"
	"github.com/hunterops/nbrun/internal/notebook"
)

// Renderer produces an HTML copy of an executed notebook next to it and
// returns the HTML path. Implemented by engine.NBConvert.
type Renderer interface {
	Render(ctx context.Context, notebookPath string) (string, error)
}

const findingsScrap = "Findings"

// FindingsDetector inspects executed notebooks and archives flagged ones
// into the findings store.
type FindingsDetector struct {
	dir      string
	renderer Renderer
}

func NewFindingsDetector(dir string, renderer Renderer) *FindingsDetector {
	return &FindingsDetector{dir: dir, renderer: renderer}
}

// Inspect reads the artifact's scraps. A truthy Findings scrap copies the
// artifact into the findings directory (created if absent) and renders an
// HTML copy at the new location. Absence of the scrap is the normal,
// non-finding outcome.
func (d *FindingsDetector) Inspect(ctx context.Context, artifact string) error {
	scraps, err := notebook.ReadScraps(artifact)
	if err != nil {
		return err
	}
	if !model.Truthy(scraps[findingsScrap]) {
		return nil
	}

	slog.InfoContext(ctx, "notebook has findings", "artifact", artifact)
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("creating findings directory %s: %w", d.dir, err)
	}

	copyPath, err := d.store(artifact)
	if err != nil {
		return err
	}

	htmlPath, err := d.renderer.Render(ctx, copyPath)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "findings archived", "copy", copyPath, "html", htmlPath)
	return nil
}

// store copies the artifact into the findings directory. The directory is
// opened as an os.Root so the copy cannot escape it.
func (d *FindingsDetector) store(artifact string) (string, error) {
	src, err := os.Open(artifact)
	if err != nil {
		return "", fmt.Errorf("opening artifact: %w", err)
	}
	defer func() {
		_ = src.Close()
	}()

	root, err := os.OpenRoot(d.dir)
	if err != nil {
		return "", fmt.Errorf("opening findings directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	name := filepath.Base(artifact)
	dst, err := root.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating findings copy: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("copying findings artifact: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("closing findings copy: %w", err)
	}
	return filepath.Join(d.dir, name), nil
}
