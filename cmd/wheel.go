package cmd

import (
	"github.com/EffectiveRange/packaging-tools/pkg/packaging"
	"github.com/spf13/cobra"
)

// NewWheelCommand returns the pack_wheel command
func NewWheelCommand() *cobra.Command {
	var flags buildFlags
	return newCommand("pack_wheel",
		"Build a wheel of a Python project",
		`pack_wheel runs 'setup.py bdist_wheel' in the workspace and prints the
path of the wheel it wrote.

Examples:
  pack_wheel ./my-project
  pack_wheel -o ./dist -p /usr/bin/python3.11 ./my-project`,
		&flags,
		func(c *cobra.Command, ws string, opts *packaging.BuildOptions) (*packaging.BuildResult, error) {
			return packaging.BuildFormat(c.Context(), ws, packaging.FormatWheel, opts)
		})
}
