package packager

import (
	"context"

	"github.com/EffectiveRange/packaging-tools/internal/runner"
)

// WheelMatcher matches the line bdist_wheel prints when writing the wheel
const WheelMatcher = `creating '(.*\.whl)' and adding`

// Wheel builds a wheel with `setup.py bdist_wheel`
type Wheel struct {
	runner *runner.Runner
}

// NewWheel creates a wheel packager
func NewWheel(r *runner.Runner) *Wheel {
	return &Wheel{runner: r}
}

// Name implements Packager.
func (w *Wheel) Name() string {
	return FormatWheel
}

// Package implements Packager.
func (w *Wheel) Package(ctx context.Context, ws string, opts Options) ([]string, error) {
	if err := prepareOutputDir(opts.OutputDir); err != nil {
		return nil, err
	}
	line := runner.Join(opts.PythonBin, "setup.py", "bdist_wheel", "--dist-dir", opts.OutputDir)

	paths, err := w.runner.Run(ctx, ws, runner.Shell(line), WheelMatcher, true)
	if err != nil {
		return nil, err
	}
	return collect(w.runner.Diagnostics().Logger(), w.Name(), ws, paths)
}
