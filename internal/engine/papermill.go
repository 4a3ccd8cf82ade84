package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hunterops/nbrun/internal/model"
)

// Papermill runs parameterized notebooks through the papermill CLI.
type Papermill struct {
	cmd model.Command
}

func NewPapermill(cmd model.Command) Papermill {
	if cmd.Path == "" {
		cmd.Path = "papermill"
	}
	return Papermill{cmd: cmd}
}

// Execute runs input into output with the given parameter mapping and
// options. It blocks until the engine finishes and returns an error on a
// start failure or a non-zero exit.
func (p Papermill) Execute(ctx context.Context, input, output string, parameters map[string]any, opts model.ExecOptions) error {
	args, err := executeArgs(input, output, parameters, opts)
	if err != nil {
		return err
	}

	res := run(ctx, p.cmd, args, logStderr)
	if res.Err != nil {
		return fmt.Errorf("executing notebook %s: %w", input, res.Err)
	}
	slog.DebugContext(ctx, "engine finished",
		"notebook", input,
		"duration", res.Stopped.Sub(res.Started).String())
	return nil
}

// executeArgs renders the papermill command line. The parameter mapping is
// passed as a single YAML argument so non-string values survive the trip.
func executeArgs(input, output string, parameters map[string]any, opts model.ExecOptions) ([]string, error) {
	args := []string{input, output}
	if len(parameters) > 0 {
		y, err := yaml.Marshal(parameters)
		if err != nil {
			return nil, fmt.Errorf("encoding notebook parameters: %w", err)
		}
		args = append(args, "-y", string(y))
	}

	if opts.EngineName != "" {
		args = append(args, "--engine", opts.EngineName)
	}
	args = appendFlag(args, opts.RequestSaveOnCellExecute,
		"--request-save-on-cell-execute", "--no-request-save-on-cell-execute")
	if opts.AutosaveCellEvery != nil {
		args = append(args, "--autosave-cell-every", strconv.Itoa(*opts.AutosaveCellEvery))
	}
	if opts.KernelName != "" {
		args = append(args, "-k", opts.KernelName)
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	args = appendFlag(args, opts.ProgressBar, "--progress-bar", "--no-progress-bar")
	args = appendFlag(args, opts.LogOutput, "--log-output", "--no-log-output")
	args = appendFlag(args, opts.ReportMode, "--report-mode", "--no-report-mode")
	return args, nil
}

func appendFlag(args []string, v *bool, on, off string) []string {
	switch {
	case v == nil:
		return args
	case *v:
		return append(args, on)
	default:
		return append(args, off)
	}
}
