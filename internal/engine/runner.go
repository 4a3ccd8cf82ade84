package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hunterops/nbrun/internal/model"
)

// StderrFunc receives one line of the child's stderr at a time.
type StderrFunc func(ctx context.Context, line string)

// Result captures one finished external command.
type Result struct {
	Path    string
	Args    []string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Stdout  *bytes.Buffer
	Err     error
}

// run executes the command and blocks until it finishes. Jobs are strictly
// sequential, so there is nothing to coordinate beyond the stderr pump.
func run(ctx context.Context, proto model.Command, extraArgs []string, stderrFunc StderrFunc) Result {
	res := Result{
		Path: proto.Path,
		Args: append(append([]string(nil), proto.Args...), extraArgs...),
	}

	if proto.Timeout == 0 {
		slog.WarnContext(ctx, "command has no timeout", "path", proto.Path)
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proto.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, res.Path, res.Args...)
	cmd.Env = append(os.Environ(), proto.Environ()...)

	var stdout bytes.Buffer
	res.Stdout = &stdout
	cmd.Stdout = &stdout

	var stderr io.ReadCloser
	if stderrFunc != nil {
		var err error
		stderr, err = cmd.StderrPipe()
		if err != nil {
			res.Err = err
			return res
		}
	}

	res.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		res.Stopped = time.Now().UTC()
		res.Err = err
		return res
	}

	var g errgroup.Group
	if stderr != nil {
		g.Go(func() error {
			scanner := bufio.NewScanner(stderr)
			for scanner.Scan() {
				stderrFunc(ctx, scanner.Text())
			}
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				slog.ErrorContext(ctx, "processing stderr", "error", err)
			}
			return nil
		})
	}

	_ = g.Wait() // the stderr pipe closes when the child exits
	res.Err = cmd.Wait()
	res.Stopped = time.Now().UTC()
	res.State = cmd.ProcessState
	return res
}

func logStderr(ctx context.Context, line string) {
	slog.DebugContext(ctx, "engine stderr", "line", line)
}
