package cmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EffectiveRange/packaging-tools/cmd"
	"github.com/EffectiveRange/packaging-tools/internal/config"
	packtesting "github.com/EffectiveRange/packaging-tools/internal/testing"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// lines returns the non-empty stdout lines
func (r result) lines() []string {
	return strings.Fields(r.stdout)
}

type env struct {
	fixture *packtesting.Fixture
	tools   *packtesting.Tools
}

func newEnv(t *testing.T) *env {
	t.Helper()
	t.Setenv("PACKAGING_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	config.Reset()
	t.Cleanup(config.Reset)

	fixture := packtesting.NewFixture(t)
	tools := packtesting.NewTools(t, fixture)
	t.Setenv("PACKAGING_FPM", tools.Fpm)
	t.Setenv("PACKAGING_DPKG_BUILDPACKAGE", tools.DpkgBuildpackage)
	return &env{fixture: fixture, tools: tools}
}

func run(c *cobra.Command, args ...string) result {
	var stdout, stderr bytes.Buffer
	code := cmd.Run(context.Background(), c, args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (e *env) run(c *cobra.Command, args ...string) result {
	return run(c, append([]string{"-p", e.tools.Python}, args...)...)
}

func expectSuccess(t *testing.T, r result) {
	t.Helper()
	if r.code != 0 {
		t.Fatalf("exit code = %d, want 0\nstderr:\n%s", r.code, r.stderr)
	}
}

func TestPackWheel(t *testing.T) {
	e := newEnv(t)

	r := e.run(cmd.NewWheelCommand(), e.fixture.Project)
	expectSuccess(t, r)

	want := []string{e.fixture.Path("dist", e.fixture.WheelName())}
	if diff := cmp.Diff(want, r.lines()); diff != "" {
		t.Errorf("unexpected stdout (-want +got):\n%s", diff)
	}
	packtesting.AssertFile(t, want[0])
	if !strings.Contains(r.stderr, "running bdist_wheel") {
		t.Errorf("tool output not echoed to stderr:\n%s", r.stderr)
	}
}

func TestPackWheelRelativeOutputDir(t *testing.T) {
	e := newEnv(t)
	t.Chdir(e.fixture.Root)

	r := e.run(cmd.NewWheelCommand(), "-o", "dist", "etc/test-project")
	expectSuccess(t, r)

	want := []string{filepath.Join(e.fixture.Root, "dist", e.fixture.WheelName())}
	if diff := cmp.Diff(want, r.lines()); diff != "" {
		t.Errorf("unexpected stdout (-want +got):\n%s", diff)
	}
}

func TestPackWheelAbsoluteOutputDir(t *testing.T) {
	e := newEnv(t)
	out := filepath.Join(e.fixture.Root, "etc", "dist")

	r := e.run(cmd.NewWheelCommand(), "-o", out, e.fixture.Project)
	expectSuccess(t, r)

	if diff := cmp.Diff([]string{filepath.Join(out, e.fixture.WheelName())}, r.lines()); diff != "" {
		t.Errorf("unexpected stdout (-want +got):\n%s", diff)
	}
}

func TestFpmDeb(t *testing.T) {
	e := newEnv(t)
	service := e.fixture.Path("service", "test-project.service")

	r := e.run(cmd.NewFpmDebCommand(), "-a", "--deb-systemd "+service, e.fixture.Project)
	expectSuccess(t, r)

	want := []string{e.fixture.Path("dist", e.fixture.FpmDebName())}
	if diff := cmp.Diff(want, r.lines()); diff != "" {
		t.Errorf("unexpected stdout (-want +got):\n%s", diff)
	}
	if got := packtesting.ReadFile(t, want[0]); !strings.Contains(got, "--deb-systemd="+service) {
		t.Errorf("fpm did not receive the extra argument, got %q", got)
	}
}

func TestPackDhVirtualenv(t *testing.T) {
	e := newEnv(t)

	r := e.run(cmd.NewDhVirtualenvCommand(),
		"-s", e.fixture.Path("service", "test-project.service"),
		"-e", e.fixture.Path("scripts", "*"),
		e.fixture.Project)
	expectSuccess(t, r)

	want := []string{e.fixture.Path("dist", e.fixture.VirtualenvDebName())}
	if diff := cmp.Diff(want, r.lines()); diff != "" {
		t.Errorf("unexpected stdout (-want +got):\n%s", diff)
	}
	files := packtesting.ReadFile(t, want[0])
	for _, f := range []string{"test-project.service", "test-project.postinst"} {
		if !strings.Contains(files, f) {
			t.Errorf("debian/%s missing from build, got %q", f, files)
		}
	}
}

func TestPackPythonDefault(t *testing.T) {
	e := newEnv(t)

	r := e.run(cmd.NewPythonCommand(), e.fixture.Project)
	expectSuccess(t, r)

	if diff := cmp.Diff([]string{e.fixture.Path("dist", e.fixture.FpmDebName())}, r.lines()); diff != "" {
		t.Errorf("unexpected stdout (-want +got):\n%s", diff)
	}
}

func TestPackPythonAll(t *testing.T) {
	e := newEnv(t)

	r := e.run(cmd.NewPythonCommand(), "--all", e.fixture.Project)
	expectSuccess(t, r)

	want := []string{
		e.fixture.Path("dist", e.fixture.WheelName()),
		e.fixture.Path("dist", e.fixture.FpmDebName()),
		e.fixture.Path("dist", e.fixture.VirtualenvDebName()),
	}
	if diff := cmp.Diff(want, r.lines()); diff != "" {
		t.Errorf("unexpected stdout (-want +got):\n%s", diff)
	}
}

func TestPackPythonFormats(t *testing.T) {
	e := newEnv(t)

	r := e.run(cmd.NewPythonCommand(), "-f", "dh-virtualenv", "-f", "wheel", e.fixture.Project)
	expectSuccess(t, r)

	want := []string{
		e.fixture.Path("dist", e.fixture.VirtualenvDebName()),
		e.fixture.Path("dist", e.fixture.WheelName()),
	}
	if diff := cmp.Diff(want, r.lines()); diff != "" {
		t.Errorf("unexpected stdout (-want +got):\n%s", diff)
	}
}

func TestPackPythonUnknownFormatBuildsNothing(t *testing.T) {
	e := newEnv(t)

	r := e.run(cmd.NewPythonCommand(), "-f", "wheel", "-f", "rpm", e.fixture.Project)
	if r.code != 1 {
		t.Errorf("exit code = %d, want 1\nstderr:\n%s", r.code, r.stderr)
	}
	if r.stdout != "" {
		t.Errorf("expected empty stdout, got %q", r.stdout)
	}
	if !strings.Contains(r.stderr, `unknown package format "rpm"`) {
		t.Errorf("unknown format not reported:\n%s", r.stderr)
	}
	if _, err := os.Stat(e.fixture.Path("dist")); !os.IsNotExist(err) {
		t.Errorf("output directory written, stat err = %v", err)
	}
}

func TestInvalidPythonExitCode(t *testing.T) {
	tests := []struct {
		name string
		cmd  func() *cobra.Command
		want int
	}{
		{name: "pack_wheel", cmd: cmd.NewWheelCommand, want: 127},
		{name: "fpm-deb", cmd: cmd.NewFpmDebCommand, want: 1},
		{name: "pack_dh-virtualenv", cmd: cmd.NewDhVirtualenvCommand, want: 127},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)

			r := run(tt.cmd(), "-p", "/invalid/path", e.fixture.Project)
			if r.code != tt.want {
				t.Errorf("exit code = %d, want %d\nstderr:\n%s", r.code, tt.want, r.stderr)
			}
			if r.stdout != "" {
				t.Errorf("expected empty stdout, got %q", r.stdout)
			}
			if !strings.Contains(r.stderr, "failed with return code") {
				t.Errorf("failure not reported on stderr:\n%s", r.stderr)
			}
		})
	}
}

func TestInvalidWorkspaceExitCode(t *testing.T) {
	e := newEnv(t)
	empty := filepath.Join(e.fixture.Root, "empty")
	if err := os.Mkdir(empty, 0755); err != nil {
		t.Fatal(err)
	}

	for _, newCmd := range []func() *cobra.Command{
		cmd.NewWheelCommand, cmd.NewFpmDebCommand, cmd.NewDhVirtualenvCommand, cmd.NewPythonCommand,
	} {
		r := e.run(newCmd(), filepath.Join(e.fixture.Root, "missing"))
		if r.code != 1 || !strings.Contains(r.stderr, "does not exist") {
			t.Errorf("%s missing dir: exit code = %d, stderr:\n%s", newCmd().Name(), r.code, r.stderr)
		}

		r = e.run(newCmd(), empty)
		if r.code != 2 || !strings.Contains(r.stderr, "There is no setup.py in the workspace directory") {
			t.Errorf("%s no setup.py: exit code = %d, stderr:\n%s", newCmd().Name(), r.code, r.stderr)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"a", "b"},
		{"--no-such-flag", "."},
	} {
		r := run(cmd.NewWheelCommand(), args...)
		if r.code != 1 {
			t.Errorf("args %q: exit code = %d, want 1", args, r.code)
		}
		if !strings.Contains(r.stderr, "Usage:") {
			t.Errorf("args %q: usage not printed:\n%s", args, r.stderr)
		}
		if r.stdout != "" {
			t.Errorf("args %q: unexpected stdout %q", args, r.stdout)
		}
	}
}

func TestQuiet(t *testing.T) {
	e := newEnv(t)

	r := e.run(cmd.NewWheelCommand(), "--quiet", e.fixture.Project)
	expectSuccess(t, r)

	if strings.Contains(r.stderr, "running bdist_wheel") {
		t.Errorf("quiet run echoed tool output:\n%s", r.stderr)
	}
}

func TestRealTools(t *testing.T) {
	packtesting.RequireTools(t, "python3", "fpm")
	t.Setenv("PACKAGING_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	config.Reset()
	t.Cleanup(config.Reset)
	fixture := packtesting.NewFixture(t)

	r := run(cmd.NewFpmDebCommand(), fixture.Project)
	expectSuccess(t, r)

	want := []string{fixture.Path("dist", fixture.FpmDebName())}
	if diff := cmp.Diff(want, r.lines()); diff != "" {
		t.Errorf("unexpected stdout (-want +got):\n%s", diff)
	}
}
