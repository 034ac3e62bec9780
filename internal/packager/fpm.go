package packager

import (
	"context"
	"strings"

	"github.com/EffectiveRange/packaging-tools/internal/runner"
)

// FpmMatcher matches fpm's report of the package it wrote
const FpmMatcher = `.*Created package \{:path=>"(.*)"\}`

// FpmDeb builds a Debian package of the Python module with fpm
type FpmDeb struct {
	runner *runner.Runner
}

// NewFpmDeb creates an fpm packager
func NewFpmDeb(r *runner.Runner) *FpmDeb {
	return &FpmDeb{runner: r}
}

// Name implements Packager.
func (f *FpmDeb) Name() string {
	return FormatFpmDeb
}

// Command returns the fpm invocation for opts. FpmArgs are appended
// unquoted so one value may carry several options.
func (f *FpmDeb) Command(opts Options) runner.Command {
	line := runner.Join(
		opts.FpmBin,
		"-s", "python",
		"-t", "deb",
		"-f",
		"-p", opts.OutputDir,
		"--python-bin", opts.PythonBin,
		"--python-package-name-prefix", "python3",
	)
	if len(opts.FpmArgs) > 0 {
		line += " " + strings.Join(opts.FpmArgs, " ")
	}
	return runner.Shell(line + " setup.py")
}

// Package implements Packager.
func (f *FpmDeb) Package(ctx context.Context, ws string, opts Options) ([]string, error) {
	if err := prepareOutputDir(opts.OutputDir); err != nil {
		return nil, err
	}

	paths, err := f.runner.Run(ctx, ws, f.Command(opts), FpmMatcher, true)
	if err != nil {
		return nil, err
	}
	return collect(f.runner.Diagnostics().Logger(), f.Name(), ws, paths)
}
