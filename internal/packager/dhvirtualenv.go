package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/EffectiveRange/packaging-tools/internal/debian"
	"github.com/EffectiveRange/packaging-tools/internal/metadata"
	"github.com/EffectiveRange/packaging-tools/internal/runner"
	"github.com/google/renameio"
)

// DebMatcher matches dpkg-deb's report of the package it is writing
const DebMatcher = `dpkg-deb: building package '.*' in '(.*\.deb)'\.`

// DhVirtualenv builds a Debian package shipping the project in a virtualenv.
// dpkg-buildpackage writes the package next to the workspace; it is moved
// into the output directory afterwards.
type DhVirtualenv struct {
	runner *runner.Runner
}

// NewDhVirtualenv creates a dh-virtualenv packager
func NewDhVirtualenv(r *runner.Runner) *DhVirtualenv {
	return &DhVirtualenv{runner: r}
}

// Name implements Packager.
func (d *DhVirtualenv) Name() string {
	return FormatDhVirtualenv
}

// Package implements Packager.
func (d *DhVirtualenv) Package(ctx context.Context, ws string, opts Options) (_ []string, err error) {
	if err := prepareOutputDir(opts.OutputDir); err != nil {
		return nil, err
	}
	logger := d.runner.Diagnostics().Logger()

	project, err := metadata.Query(ctx, d.runner, ws, opts.PythonBin)
	if err != nil {
		return nil, err
	}

	python := "/usr/bin/python3"
	if filepath.IsAbs(opts.PythonBin) {
		python = opts.PythonBin
	}
	tree, err := debian.Generate(ws, debian.Options{
		Project:     project,
		Python:      python,
		ServiceFile: opts.ServiceFile,
		ExtraFiles:  opts.ExtraFiles,
	})
	if err != nil {
		return nil, err
	}
	logger.WithField("files", tree.Files).Debugf("Generated %s", tree.Dir)
	if !opts.KeepDebian {
		defer func() {
			if rerr := tree.Remove(); rerr != nil && err == nil {
				err = fmt.Errorf("failed to remove %s: %w", tree.Dir, rerr)
			}
		}()
	}

	line := runner.Join(opts.DpkgBuildpackageBin, "-us", "-uc", "-b")
	paths, err := d.runner.Run(ctx, ws, runner.Shell(line), DebMatcher, true)
	if err != nil {
		return nil, err
	}

	var moved []string
	for path := range paths {
		src := filepath.Join(ws, path)
		if filepath.IsAbs(path) {
			src = path
		}
		dest := filepath.Join(opts.OutputDir, filepath.Base(src))
		if err := move(src, dest); err != nil {
			return nil, err
		}
		moved = append(moved, dest)
	}
	return collect(logger, d.Name(), ws, slices.Values(moved))
}

// move renames src to dest, copying across file systems
func move(src, dest string) error {
	if src == dest {
		return nil
	}
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to move package to %s: %w", dest, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := renameio.TempFile("", dest)
	if err != nil {
		return err
	}
	defer out.Cleanup()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy package to %s: %w", dest, err)
	}
	if err := out.CloseAtomicallyReplace(); err != nil {
		return err
	}
	return os.Remove(src)
}
