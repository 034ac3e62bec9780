package packaging

import (
	"context"
	"io"
)

// Version is the current version of packaging-tools.
const Version = "1.0.0"

// DefaultOptions returns a new BuildOptions with default values.
func DefaultOptions() *BuildOptions {
	return &BuildOptions{
		Formats: []string{FormatFpmDeb},
	}
}

// Option is a functional option for configuring a build.
type Option func(*BuildOptions)

// WithFormats sets the formats to build, in order.
func WithFormats(formats ...string) Option {
	return func(o *BuildOptions) {
		o.Formats = formats
	}
}

// WithAllFormats builds wheel, fpm-deb and dh-virtualenv in that order.
func WithAllFormats() Option {
	return WithFormats(AllFormats...)
}

// WithOutputDir sets the output directory.
func WithOutputDir(dir string) Option {
	return func(o *BuildOptions) {
		o.OutputDir = dir
	}
}

// WithPython sets the Python interpreter.
func WithPython(bin string) Option {
	return func(o *BuildOptions) {
		o.PythonBin = bin
	}
}

// WithFpmArgs appends extra fpm arguments.
func WithFpmArgs(args ...string) Option {
	return func(o *BuildOptions) {
		o.FpmArgs = append(o.FpmArgs, args...)
	}
}

// WithServiceFile adds a systemd unit to dh-virtualenv packages.
func WithServiceFile(path string) Option {
	return func(o *BuildOptions) {
		o.ServiceFile = path
	}
}

// WithExtraFiles adds files to the debian/ directory of dh-virtualenv packages.
func WithExtraFiles(patterns ...string) Option {
	return func(o *BuildOptions) {
		o.ExtraFiles = append(o.ExtraFiles, patterns...)
	}
}

// WithDiagnostics redirects log records and tool output.
func WithDiagnostics(w io.Writer) Option {
	return func(o *BuildOptions) {
		o.Diagnostics = w
	}
}

// WithQuiet stops echoing tool output.
func WithQuiet() Option {
	return func(o *BuildOptions) {
		o.Quiet = true
	}
}

// ApplyOptions applies functional options to BuildOptions.
func ApplyOptions(opts ...Option) *BuildOptions {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BuildWith builds a workspace with functional options.
//
// Example:
//
//	result, err := packaging.BuildWith(ctx, "./my-project",
//	    packaging.WithAllFormats(),
//	    packaging.WithOutputDir("./dist"),
//	)
func BuildWith(ctx context.Context, ws string, opts ...Option) (*BuildResult, error) {
	return Build(ctx, ws, ApplyOptions(opts...))
}
