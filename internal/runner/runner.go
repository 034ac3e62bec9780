// Package runner executes external packaging tools and extracts values, such
// as produced artifact paths, from their output.
//
// A command runs to completion before anything is yielded: a nonzero exit
// code is reported as an *ExitError and no extracted value is surfaced.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync/atomic"

	"github.com/EffectiveRange/packaging-tools/internal/output"
	"golang.org/x/sync/errgroup"
)

// Runner runs external commands and matches their output
type Runner struct {
	diag     *output.Diagnostics
	shell    string
	buffered bool
}

// Option configures a Runner
type Option func(*Runner)

// WithShell sets the shell used for shell commands (default "sh")
func WithShell(shell string) Option {
	return func(r *Runner) {
		if shell != "" {
			r.shell = shell
		}
	}
}

// Buffered makes the runner capture the whole output before matching it.
// Tool output is then echoed only when the command fails.
func Buffered(enabled bool) Option {
	return func(r *Runner) {
		r.buffered = enabled
	}
}

// New creates a runner reporting to diag
func New(diag *output.Diagnostics, opts ...Option) *Runner {
	if diag == nil {
		diag = output.Discard()
	}
	r := &Runner{diag: diag, shell: "sh"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Diagnostics returns the stream this runner reports to
func (r *Runner) Diagnostics() *output.Diagnostics {
	return r.diag
}

// Run executes cmd in workDir and returns the first capture group of every
// output line matching matcher, in output order. With firstMatchOnly only
// the first matching line contributes. The returned sequence can be consumed
// once.
func (r *Runner) Run(ctx context.Context, workDir string, cmd Command, matcher string, firstMatchOnly bool) (iter.Seq[string], error) {
	if cmd.Empty() {
		return nil, errors.New("empty command")
	}
	m, err := CompileMatcher(matcher)
	if err != nil {
		return nil, err
	}

	r.diag.Logger().Infof("Running command '%s' with output matcher %s", cmd, matcher)

	var matches []string
	if r.buffered {
		matches, err = r.runBuffered(ctx, workDir, cmd, m)
	} else {
		matches, err = r.runStreaming(ctx, workDir, cmd, m)
	}
	if err != nil {
		return nil, err
	}
	return singlePass(matches, firstMatchOnly), nil
}

// Lines runs cmd like Run and collects all values into a slice
func (r *Runner) Lines(ctx context.Context, workDir string, cmd Command, matcher string) ([]string, error) {
	seq, err := r.Run(ctx, workDir, cmd, matcher, false)
	if err != nil {
		return nil, err
	}
	var lines []string
	for line := range seq {
		lines = append(lines, line)
	}
	return lines, nil
}

// runStreaming drains stdout and stderr with two workers while the command
// runs. The stdout worker owns matches; it is read only after both workers
// have reached end of stream.
func (r *Runner) runStreaming(ctx context.Context, workDir string, cmd Command, m *Matcher) ([]string, error) {
	c := cmd.build(ctx, r.shell, workDir)
	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout of '%s': %w", cmd, err)
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr of '%s': %w", cmd, err)
	}
	if err := c.Start(); err != nil {
		return nil, r.failure(cmd, err)
	}

	var matches []string
	var g errgroup.Group
	g.Go(func() error {
		return drain(stdout, func(line string) {
			r.diag.Line(line)
			if value, ok := m.Extract(line); ok {
				matches = append(matches, value)
			}
		})
	})
	g.Go(func() error {
		return drain(stderr, r.diag.Line)
	})
	drainErr := g.Wait()

	if err := c.Wait(); err != nil {
		return nil, r.failure(cmd, err)
	}
	if drainErr != nil {
		return nil, fmt.Errorf("failed to read output of '%s': %w", cmd, drainErr)
	}
	return matches, nil
}

func (r *Runner) runBuffered(ctx context.Context, workDir string, cmd Command, m *Matcher) ([]string, error) {
	c := cmd.build(ctx, r.shell, workDir)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		r.diag.Block(stderr.String())
		return nil, r.failure(cmd, err)
	}

	var matches []string
	err := drain(&stdout, func(line string) {
		if value, ok := m.Extract(line); ok {
			matches = append(matches, value)
		}
	})
	return matches, err
}

// failure reports a command that could not run or exited unsuccessfully
func (r *Runner) failure(cmd Command, err error) error {
	code, ok := exitStatus(err)
	if !ok {
		r.diag.Logger().WithError(err).Errorf("Command '%s' could not be run", cmd)
		return fmt.Errorf("failed to run '%s': %w", cmd, err)
	}
	r.diag.Logger().Errorf("Command '%s' failed with return code %d", cmd, code)
	return &ExitError{Command: cmd.String(), Code: code, Err: err}
}

// drain calls fn for every line of rd until end of stream. Lines are not
// limited in length. After a read error the rest of rd is discarded, so the
// writer never blocks on a full pipe.
func drain(rd io.Reader, fn func(line string)) error {
	br := bufio.NewReader(rd)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			fn(line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			io.Copy(io.Discard, rd)
			return err
		}
	}
}

func singlePass(values []string, firstMatchOnly bool) iter.Seq[string] {
	var consumed atomic.Bool
	return func(yield func(string) bool) {
		if consumed.Swap(true) {
			return
		}
		for _, v := range values {
			if !yield(v) || firstMatchOnly {
				return
			}
		}
	}
}
