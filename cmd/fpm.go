package cmd

import (
	"github.com/EffectiveRange/packaging-tools/pkg/packaging"
	"github.com/spf13/cobra"
)

type fpmFlags struct {
	args []string
	bin  string
}

func (f *fpmFlags) register(c *cobra.Command) {
	c.Flags().StringArrayVarP(&f.args, "fpm-args", "a", nil, "extra fpm arguments, passed verbatim (repeatable)")
	c.Flags().StringVar(&f.bin, "fpm-bin", "", "fpm executable (default fpm)")
}

func (f *fpmFlags) apply(opts *packaging.BuildOptions) {
	opts.FpmArgs = f.args
	opts.FpmBin = f.bin
}

// NewFpmDebCommand returns the fpm-deb command
func NewFpmDebCommand() *cobra.Command {
	var (
		flags buildFlags
		fpm   fpmFlags
	)
	c := newCommand("fpm-deb",
		"Build a Debian package of a Python project with fpm",
		`fpm-deb packages the Python module of the workspace as a Debian package
named python3-<name> and prints the path of the package.

Examples:
  fpm-deb ./my-project
  fpm-deb -a "--deb-systemd service/my.service" ./my-project`,
		&flags,
		func(c *cobra.Command, ws string, opts *packaging.BuildOptions) (*packaging.BuildResult, error) {
			fpm.apply(opts)
			return packaging.BuildFormat(c.Context(), ws, packaging.FormatFpmDeb, opts)
		})
	fpm.register(c)
	return c
}
