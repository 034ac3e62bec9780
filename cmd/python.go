package cmd

import (
	"github.com/EffectiveRange/packaging-tools/pkg/packaging"
	"github.com/spf13/cobra"
)

// NewPythonCommand returns the pack_python command, which builds one or more
// formats in one go
func NewPythonCommand() *cobra.Command {
	var (
		flags      buildFlags
		fpm        fpmFlags
		virtualenv virtualenvFlags
		formats    []string
		all        bool
	)
	c := newCommand("pack_python",
		"Package a Python project",
		`pack_python builds the requested package formats of the workspace and
prints the path of every artifact in build order. Without --format it
builds the formats listed in pyproject.toml [tool.packaging], or fpm-deb.

Formats: wheel, fpm-deb, dh-virtualenv

Examples:
  pack_python ./my-project
  pack_python --all -o ./dist ./my-project
  pack_python -f wheel -f dh-virtualenv ./my-project`,
		&flags,
		func(c *cobra.Command, ws string, opts *packaging.BuildOptions) (*packaging.BuildResult, error) {
			fpm.apply(opts)
			virtualenv.apply(opts)
			opts.Formats = formats
			if all {
				opts.Formats = packaging.AllFormats
			}
			return packaging.Build(c.Context(), ws, opts)
		})
	c.Flags().StringArrayVarP(&formats, "format", "f", nil, "format to build (repeatable)")
	c.Flags().BoolVar(&all, "all", false, "build wheel, fpm-deb and dh-virtualenv")
	c.MarkFlagsMutuallyExclusive("all", "format")
	fpm.register(c)
	virtualenv.register(c)
	return c
}
