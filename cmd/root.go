// Package cmd holds the cobra command trees of the packaging wrappers. Each
// wrapper binary under cmd/ builds one of these commands and hands it to
// Execute.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/EffectiveRange/packaging-tools/internal/runner"
	"github.com/EffectiveRange/packaging-tools/internal/workspace"
	"github.com/EffectiveRange/packaging-tools/pkg/packaging"
	"github.com/spf13/cobra"
)

// usageError marks a command line that could not be parsed
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// buildFlags are the flags shared by every wrapper
type buildFlags struct {
	outputDir string
	python    string
	logLevel  string
	quiet     bool
	buffered  bool
}

func (f *buildFlags) register(c *cobra.Command) {
	c.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "output directory (default <workspace>/dist)")
	c.Flags().StringVarP(&f.python, "python-bin", "p", "", "python interpreter (default python3)")
	c.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	c.Flags().BoolVar(&f.quiet, "quiet", false, "do not echo tool output")
	c.Flags().BoolVar(&f.buffered, "buffered", false, "capture tool output before matching it")
}

func (f *buildFlags) options(stderr io.Writer) *packaging.BuildOptions {
	return &packaging.BuildOptions{
		OutputDir:   f.outputDir,
		PythonBin:   f.python,
		LogLevel:    f.logLevel,
		Quiet:       f.quiet,
		Buffered:    f.buffered,
		Diagnostics: stderr,
	}
}

// newCommand returns a wrapper command taking the workspace as its single
// argument. run receives the absolute-or-relative workspace path as given.
func newCommand(use, short, long string, flags *buildFlags, run func(c *cobra.Command, ws string, opts *packaging.BuildOptions) (*packaging.BuildResult, error)) *cobra.Command {
	c := &cobra.Command{
		Use:           use + " <workspace>",
		Short:         short,
		Long:          long,
		Version:       packaging.Version,
		Args:          exactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(c *cobra.Command, args []string) error {
			result, err := run(c, args[0], flags.options(c.ErrOrStderr()))
			if err != nil {
				return err
			}
			for _, path := range result.Paths() {
				fmt.Fprintln(c.OutOrStdout(), path)
			}
			return nil
		},
	}
	c.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	flags.register(c)
	return c
}

// InterruptibleContext returns a context which is canceled on SIGINT or
// SIGTERM. The received signal is forwarded to the running tool, so the
// wrapper exits with 128 plus its number.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancelCause(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		// A second signal terminates immediately
		signal.Stop(sig)
		canc(&runner.Interrupt{Signal: s})
	}()
	return ctx, func() { canc(context.Canceled) }
}

// Run executes c with args and returns the process exit code. Errors are
// reported on stderr; packaging errors were already logged by the build.
func Run(ctx context.Context, c *cobra.Command, args []string, stdout, stderr io.Writer) int {
	c.SetArgs(args)
	c.SetOut(stdout)
	c.SetErr(stderr)

	err := c.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !reported(err) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	if isUsage(err) {
		fmt.Fprint(stderr, c.UsageString())
	}
	return packaging.ExitCode(err)
}

// Execute runs c with the process arguments and exits with its exit code.
// This is called by main.main().
func Execute(c *cobra.Command) {
	ctx, canc := InterruptibleContext()
	code := Run(ctx, c, os.Args[1:], os.Stdout, os.Stderr)
	canc()
	os.Exit(code)
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(c *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(c, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// reported is true for errors whose message the build already logged
func reported(err error) bool {
	if _, ok := workspace.ExitCode(err); ok {
		return true
	}
	_, ok := runner.ExitCode(err)
	return ok
}

func isUsage(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}
