package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hunterops/nbrun/internal/model"
)

// NBConvert renders executed notebooks to HTML via jupyter-nbconvert. The
// HTML copy lands next to the notebook.
type NBConvert struct {
	cmd      model.Command
	template string
}

func NewNBConvert(cmd model.Command) NBConvert {
	if cmd.Path == "" {
		cmd.Path = "jupyter-nbconvert"
	}
	return NBConvert{cmd: cmd, template: "classic"}
}

func (n NBConvert) WithTemplate(name string) NBConvert {
	n.template = name
	return n
}

// Render produces an HTML copy next to the notebook and returns its path.
func (n NBConvert) Render(ctx context.Context, notebookPath string) (string, error) {
	args := []string{"--to", "html", "--template", n.template, notebookPath}
	res := run(ctx, n.cmd, args, logStderr)
	if res.Err != nil {
		return "", fmt.Errorf("rendering %s to HTML: %w", notebookPath, res.Err)
	}
	return strings.TrimSuffix(notebookPath, filepath.Ext(notebookPath)) + ".html", nil
}
