package queue_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hunterops/nbrun/internal/model"

	"github.com/stretchr/testify/require"
)

// artifact fixtures in the executed-notebook JSON format
const (
	plainArtifact = `{"cells":[{"cell_type":"code","outputs":[]}]}`

	findingsArtifact = `{"cells":[{"cell_type":"code","outputs":[
		{"output_type":"display_data","data":{
			"application/scrapbook.scrap.json+json":{"name":"Findings","data":true}
		}}
	]}]}`
)

const validDescriptor = `
papermill:
  region: eu
  date: "2024-01-01"
exec:
  notebook: hunt.ipynb
  identifier:
    - region
    - date
`

type execCall struct {
	input      string
	output     string
	parameters map[string]any
	opts       model.ExecOptions
}

// fakeEngine records calls and writes artifact bytes to the output path.
// failFor makes the call for a given input notebook base name fail.
type fakeEngine struct {
	calls    []execCall
	artifact string
	failFor  map[string]error
}

func (e *fakeEngine) Execute(_ context.Context, input, output string, parameters map[string]any, opts model.ExecOptions) error {
	e.calls = append(e.calls, execCall{input: input, output: output, parameters: parameters, opts: opts})
	if err := e.failFor[filepath.Base(input)]; err != nil {
		return err
	}
	artifact := e.artifact
	if artifact == "" {
		artifact = plainArtifact
	}
	return os.WriteFile(output, []byte(artifact), 0o644)
}

// fakeRenderer writes an empty .html next to the notebook.
type fakeRenderer struct {
	calls []string
}

func (r *fakeRenderer) Render(_ context.Context, notebookPath string) (string, error) {
	r.calls = append(r.calls, notebookPath)
	htmlPath := notebookPath[:len(notebookPath)-len(filepath.Ext(notebookPath))] + ".html"
	return htmlPath, os.WriteFile(htmlPath, []byte("<html></html>"), 0o644)
}

// testConfig builds a Config rooted in a fresh temp dir with the queue
// directory created.
func testConfig(t *testing.T) model.Config {
	t.Helper()
	root := t.TempDir()
	cfg := model.Config{
		NotebookPath:  filepath.Join(root, "nb"),
		QueuePath:     filepath.Join(root, "queue"),
		OutputPath:    filepath.Join(root, "output"),
		FindingsPath:  filepath.Join(root, "findings"),
		OutputDiv:     "d",
		CheckInterval: 10 * time.Millisecond,
	}
	require.NoError(t, os.MkdirAll(cfg.QueuePath, 0o755))
	return cfg
}

func writeDescriptor(t *testing.T, cfg model.Config, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.QueuePath, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// queueFiles returns the base names matching pattern in the queue directory.
func queueFiles(t *testing.T, cfg model.Config, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(cfg.QueuePath, pattern))
	require.NoError(t, err)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	return names
}

func descriptorFor(notebook string) string {
	return fmt.Sprintf("papermill:\n  region: eu\nexec:\n  notebook: %s\n  identifier: region\n", notebook)
}
