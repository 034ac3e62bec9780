// Package packaging provides a public API for building distributable
// packages of Python projects.
//
// A workspace is the root directory of a Python project holding a setup.py.
// Build turns it into one or more artifacts (a wheel, an fpm built Debian
// package, a dh-virtualenv Debian package) using the external packaging
// tools, and reports the absolute artifact paths in build order.
//
// Basic usage:
//
//	result, err := packaging.Build(ctx, "./my-project", nil)
//	if err != nil {
//	    os.Exit(packaging.ExitCode(err))
//	}
//	for _, a := range result.Artifacts {
//	    fmt.Println(a.Path)
//	}
//
// With options:
//
//	result, err := packaging.Build(ctx, "./my-project", &packaging.BuildOptions{
//	    Formats:   packaging.AllFormats,
//	    OutputDir: "./dist",
//	})
//
// Tool output and log records go to the diagnostic stream (os.Stderr by
// default), never to stdout.
package packaging

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/EffectiveRange/packaging-tools/internal/config"
	"github.com/EffectiveRange/packaging-tools/internal/output"
	"github.com/EffectiveRange/packaging-tools/internal/packager"
	"github.com/EffectiveRange/packaging-tools/internal/runner"
	"github.com/EffectiveRange/packaging-tools/internal/workspace"
)

// Package formats
const (
	FormatWheel        = packager.FormatWheel
	FormatFpmDeb       = packager.FormatFpmDeb
	FormatDhVirtualenv = packager.FormatDhVirtualenv
)

// AllFormats lists every format in the order Build builds them
var AllFormats = slices.Clone(packager.AllFormats)

// BuildOptions configures a build. Zero values fall back to the
// [tool.packaging] table of the workspace's pyproject.toml, then to the
// environment and user config, then to defaults.
type BuildOptions struct {
	// Formats are built in the given order. Defaults to fpm-deb.
	Formats []string

	// OutputDir receives the artifacts. Relative paths are relative to the
	// current directory. Defaults to <workspace>/dist.
	OutputDir string

	// Tool paths
	PythonBin           string
	FpmBin              string
	DpkgBuildpackageBin string

	// FpmArgs are passed to fpm verbatim
	FpmArgs []string

	// ServiceFile and ExtraFiles are added to dh-virtualenv packages.
	// Relative paths are relative to the current directory.
	ServiceFile string
	ExtraFiles  []string

	// KeepDebian keeps the generated debian/ directory
	KeepDebian bool

	// Diagnostics receives log records and tool output (default os.Stderr)
	Diagnostics io.Writer

	// LogLevel overrides the configured log level
	LogLevel string

	// Quiet suppresses echoing tool output
	Quiet bool

	// Buffered captures tool output fully before matching it
	Buffered bool
}

// Artifact is one produced file
type Artifact struct {
	Format string
	Path   string
}

// BuildResult contains the results of a successful build.
type BuildResult struct {
	// Workspace is the absolute workspace path
	Workspace string

	// OutputDir is the absolute output directory
	OutputDir string

	// Artifacts in build order
	Artifacts []Artifact
}

// Paths returns the artifact paths in build order
func (r *BuildResult) Paths() []string {
	paths := make([]string, len(r.Artifacts))
	for i, a := range r.Artifacts {
		paths[i] = a.Path
	}
	return paths
}

// Build validates ws and builds every requested format.
//
// Errors returned carry the exit code a wrapper should terminate with; see
// ExitCode.
func Build(ctx context.Context, ws string, opts *BuildOptions) (*BuildResult, error) {
	if opts == nil {
		opts = &BuildOptions{}
	}
	w := opts.Diagnostics
	if w == nil {
		w = os.Stderr
	}

	cfg, cfgErr := config.Load()
	cfg = copyConfig(cfg)
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Quiet {
		cfg.Echo = false
	}
	if opts.Buffered {
		cfg.Buffered = true
	}
	diag := output.NewDiagnostics(w, output.Options{Level: cfg.LogLevel, Echo: cfg.Echo, Color: cfg.Color})
	logger := diag.Logger()
	if cfgErr != nil {
		logger.WithError(cfgErr).Warn("Ignoring user config")
	}

	root, err := workspace.Abs(ws)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	project, err := config.LoadWorkspace(root)
	if err != nil {
		return nil, err
	}

	popts, formats, err := resolve(cfg, project, root, opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r := runner.New(diag, runner.WithShell(cfg.Shell), runner.Buffered(cfg.Buffered))
	registry := packager.DefaultRegistry(r)

	// Every format is looked up before the first one is built
	packagers := make([]packager.Packager, len(formats))
	for i, format := range formats {
		p, ok := registry.Get(format)
		if !ok || format == "" {
			return nil, fmt.Errorf("unknown package format %q: want one of %v", format, registry.Names())
		}
		packagers[i] = p
	}

	result := &BuildResult{Workspace: root, OutputDir: popts.OutputDir}
	for i, p := range packagers {
		format := formats[i]
		paths, err := p.Package(ctx, root, popts)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			result.Artifacts = append(result.Artifacts, Artifact{Format: format, Path: path})
		}
	}
	return result, nil
}

// BuildFormat builds a single format; a shorthand for the one-tool wrappers
func BuildFormat(ctx context.Context, ws, format string, opts *BuildOptions) (*BuildResult, error) {
	o := BuildOptions{}
	if opts != nil {
		o = *opts
	}
	o.Formats = []string{format}
	return Build(ctx, ws, &o)
}

// ExitCode returns the process exit code for an error returned by Build:
// 0 for nil, 1 or 2 for an invalid workspace, the tool's own code when a
// packaging tool failed, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := workspace.ExitCode(err); ok {
		return code
	}
	if code, ok := runner.ExitCode(err); ok {
		return code
	}
	return 1
}

func copyConfig(cfg *config.Config) *config.Config {
	c := *cfg
	return &c
}

// resolve merges flags, workspace config and user config into packager
// options. Flags win; workspace paths are relative to the workspace.
func resolve(cfg *config.Config, project *config.Workspace, root string, opts *BuildOptions) (packager.Options, []string, error) {
	cfg.WithTools(project.PythonBin, "", "")
	cfg.WithTools(opts.PythonBin, opts.FpmBin, opts.DpkgBuildpackageBin)

	po := packager.Options{
		PythonBin:           cfg.PythonBin,
		FpmBin:              cfg.FpmBin,
		DpkgBuildpackageBin: cfg.DpkgBuildpackageBin,
		FpmArgs:             project.FpmArgs,
		KeepDebian:          opts.KeepDebian,
	}
	if len(opts.FpmArgs) > 0 {
		po.FpmArgs = opts.FpmArgs
	}

	var err error
	switch {
	case opts.OutputDir != "":
		po.OutputDir, err = workspace.OutputDir(opts.OutputDir, root)
	case project.OutputDir != "":
		po.OutputDir = workspace.Resolve(project.OutputDir, root)
	default:
		po.OutputDir, err = workspace.OutputDir("", root)
	}
	if err != nil {
		return po, nil, err
	}

	switch {
	case opts.ServiceFile != "":
		po.ServiceFile, err = workspace.ResolveFromCwd(opts.ServiceFile)
		if err != nil {
			return po, nil, err
		}
	case project.ServiceFile != "":
		po.ServiceFile = workspace.Resolve(project.ServiceFile, root)
	}

	switch {
	case len(opts.ExtraFiles) > 0:
		for _, pattern := range opts.ExtraFiles {
			abs, err := workspace.ResolveFromCwd(pattern)
			if err != nil {
				return po, nil, err
			}
			po.ExtraFiles = append(po.ExtraFiles, abs)
		}
	default:
		for _, pattern := range project.ExtraFiles {
			po.ExtraFiles = append(po.ExtraFiles, workspace.Resolve(pattern, root))
		}
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = project.Formats
	}
	if len(formats) == 0 {
		formats = []string{FormatFpmDeb}
	}
	return po, formats, nil
}
