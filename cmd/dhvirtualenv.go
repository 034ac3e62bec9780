package cmd

import (
	"github.com/EffectiveRange/packaging-tools/pkg/packaging"
	"github.com/spf13/cobra"
)

type virtualenvFlags struct {
	serviceFile string
	extraFiles  []string
	keepDebian  bool
	dpkgBin     string
}

func (f *virtualenvFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&f.serviceFile, "service-file", "s", "", "systemd unit to install with the package")
	c.Flags().StringArrayVarP(&f.extraFiles, "extra-files", "e", nil, "glob of files to copy into debian/ (repeatable)")
	c.Flags().BoolVar(&f.keepDebian, "keep-debian", false, "keep the generated debian/ directory")
	c.Flags().StringVar(&f.dpkgBin, "dpkg-buildpackage-bin", "", "dpkg-buildpackage executable")
}

func (f *virtualenvFlags) apply(opts *packaging.BuildOptions) {
	opts.ServiceFile = f.serviceFile
	opts.ExtraFiles = f.extraFiles
	opts.KeepDebian = f.keepDebian
	opts.DpkgBuildpackageBin = f.dpkgBin
}

// NewDhVirtualenvCommand returns the pack_dh-virtualenv command
func NewDhVirtualenvCommand() *cobra.Command {
	var (
		flags      buildFlags
		virtualenv virtualenvFlags
	)
	c := newCommand("pack_dh-virtualenv",
		"Build a Debian package shipping a Python project in a virtualenv",
		`pack_dh-virtualenv generates a debian/ directory for the workspace when it
has none, runs dpkg-buildpackage with dh-virtualenv, moves the package into
the output directory and prints its path.

Examples:
  pack_dh-virtualenv ./my-project
  pack_dh-virtualenv -s service/my.service -e "scripts/*" ./my-project`,
		&flags,
		func(c *cobra.Command, ws string, opts *packaging.BuildOptions) (*packaging.BuildResult, error) {
			virtualenv.apply(opts)
			return packaging.BuildFormat(c.Context(), ws, packaging.FormatDhVirtualenv, opts)
		})
	virtualenv.register(c)
	return c
}
