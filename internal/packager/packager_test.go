package packager_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EffectiveRange/packaging-tools/internal/output"
	"github.com/EffectiveRange/packaging-tools/internal/packager"
	"github.com/EffectiveRange/packaging-tools/internal/runner"
	packtesting "github.com/EffectiveRange/packaging-tools/internal/testing"
	"github.com/google/go-cmp/cmp"
)

type env struct {
	fixture *packtesting.Fixture
	tools   *packtesting.Tools
	runner  *runner.Runner
	diag    *bytes.Buffer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fixture := packtesting.NewFixture(t)
	var buf bytes.Buffer
	diag := output.NewDiagnostics(&buf, output.Options{Echo: true, Color: output.ColorNever})
	return &env{
		fixture: fixture,
		tools:   packtesting.NewTools(t, fixture),
		runner:  runner.New(diag),
		diag:    &buf,
	}
}

func (e *env) options() packager.Options {
	return packager.Options{
		OutputDir:           e.fixture.Path("dist"),
		PythonBin:           e.tools.Python,
		FpmBin:              e.tools.Fpm,
		DpkgBuildpackageBin: e.tools.DpkgBuildpackage,
	}
}

func TestWheel(t *testing.T) {
	e := newEnv(t)

	got, err := packager.NewWheel(e.runner).Package(context.Background(), e.fixture.Project, e.options())
	if err != nil {
		t.Fatalf("Package() error = %v\n%s", err, e.diag)
	}

	want := []string{e.fixture.Path("dist", e.fixture.WheelName())}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected artifacts (-want +got):\n%s", diff)
	}
	packtesting.AssertFile(t, want[0])
}

func TestFpmDeb(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	opts.OutputDir = filepath.Join(e.fixture.Root, "etc", "dist")

	got, err := packager.NewFpmDeb(e.runner).Package(context.Background(), e.fixture.Project, opts)
	if err != nil {
		t.Fatalf("Package() error = %v\n%s", err, e.diag)
	}

	want := []string{filepath.Join(opts.OutputDir, e.fixture.FpmDebName())}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected artifacts (-want +got):\n%s", diff)
	}
	packtesting.AssertFile(t, want[0])
}

func TestFpmDebExtraArgs(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	service := e.fixture.Path("service", "test-project.service")
	opts.FpmArgs = []string{"--deb-systemd " + service, "--after-install " + e.fixture.Path("scripts", "test-project.postinst")}

	got, err := packager.NewFpmDeb(e.runner).Package(context.Background(), e.fixture.Project, opts)
	if err != nil {
		t.Fatalf("Package() error = %v\n%s", err, e.diag)
	}

	recorded := packtesting.ReadFile(t, got[0])
	for _, want := range []string{"--deb-systemd=" + service, "--after-install="} {
		if !strings.Contains(recorded, want) {
			t.Errorf("fpm did not receive %q, got %q", want, recorded)
		}
	}
}

func TestFpmDebCommand(t *testing.T) {
	cmd := packager.NewFpmDeb(nil).Command(packager.Options{
		OutputDir: "/out dir",
		PythonBin: "python3",
		FpmBin:    "fpm",
		FpmArgs:   []string{"--deb-systemd a.service"},
	})

	want := "fpm -s python -t deb -f -p '/out dir' --python-bin python3 --python-package-name-prefix python3 --deb-systemd a.service setup.py"
	if cmd.String() != want {
		t.Errorf("Command() = %q, want %q", cmd.String(), want)
	}
}

func TestDhVirtualenv(t *testing.T) {
	e := newEnv(t)

	got, err := packager.NewDhVirtualenv(e.runner).Package(context.Background(), e.fixture.Project, e.options())
	if err != nil {
		t.Fatalf("Package() error = %v\n%s", err, e.diag)
	}

	want := []string{e.fixture.Path("dist", e.fixture.VirtualenvDebName())}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected artifacts (-want +got):\n%s", diff)
	}
	packtesting.AssertFile(t, want[0])

	// The package was moved out of the workspace's parent
	if _, err := os.Stat(filepath.Join(filepath.Dir(e.fixture.Project), e.fixture.VirtualenvDebName())); !os.IsNotExist(err) {
		t.Errorf("package left next to the workspace, stat err = %v", err)
	}
	// The generated debian/ directory is removed
	if _, err := os.Stat(e.fixture.Path("debian")); !os.IsNotExist(err) {
		t.Errorf("generated debian/ left behind, stat err = %v", err)
	}
}

func TestDhVirtualenvServiceAndExtraFiles(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	opts.ServiceFile = e.fixture.Path("service", "test-project.service")
	opts.ExtraFiles = []string{e.fixture.Path("scripts", "*")}
	opts.KeepDebian = true

	got, err := packager.NewDhVirtualenv(e.runner).Package(context.Background(), e.fixture.Project, opts)
	if err != nil {
		t.Fatalf("Package() error = %v\n%s", err, e.diag)
	}

	files := strings.Fields(packtesting.ReadFile(t, got[0]))
	for _, want := range []string{"control", "rules", "test-project.service", "test-project.postinst", "test-project.postrm"} {
		if !contains(files, want) {
			t.Errorf("debian/%s missing from build, got %v", want, files)
		}
	}
	packtesting.AssertFile(t, e.fixture.Path("debian", "control"))
}

func TestInvalidPythonPropagatesExitCode(t *testing.T) {
	for _, tt := range []struct {
		packager func(*runner.Runner) packager.Packager
		want     int
	}{
		{packager: func(r *runner.Runner) packager.Packager { return packager.NewWheel(r) }, want: 127},
		{packager: func(r *runner.Runner) packager.Packager { return packager.NewFpmDeb(r) }, want: 1},
		{packager: func(r *runner.Runner) packager.Packager { return packager.NewDhVirtualenv(r) }, want: 127},
	} {
		e := newEnv(t)
		p := tt.packager(e.runner)
		t.Run(p.Name(), func(t *testing.T) {
			opts := e.options()
			opts.PythonBin = "/invalid/path"

			got, err := p.Package(context.Background(), e.fixture.Project, opts)
			if code, ok := runner.ExitCode(err); !ok || code != tt.want {
				t.Errorf("ExitCode() = %d, %v, want %d (err = %v)", code, ok, tt.want, err)
			}
			if got != nil {
				t.Errorf("expected no artifacts, got %v", got)
			}
		})
	}
}

func TestNoArtifactReported(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	opts.FpmBin = "true"

	if _, err := packager.NewFpmDeb(e.runner).Package(context.Background(), e.fixture.Project, opts); err == nil {
		t.Error("expected error when the tool reports no package")
	}
}

func TestRelativeOutputDirRejected(t *testing.T) {
	e := newEnv(t)
	opts := e.options()
	opts.OutputDir = "dist"

	if _, err := packager.NewWheel(e.runner).Package(context.Background(), e.fixture.Project, opts); err == nil {
		t.Error("expected error for relative output directory")
	}
}

func TestRegistry(t *testing.T) {
	registry := packager.DefaultRegistry(runner.New(nil))

	if diff := cmp.Diff([]string{"dh-virtualenv", "fpm-deb", "wheel"}, registry.Names()); diff != "" {
		t.Errorf("unexpected names (-want +got):\n%s", diff)
	}

	// Get with empty name should return default
	p, ok := registry.Get("")
	if !ok || p.Name() != packager.FormatFpmDeb {
		t.Errorf("expected fpm-deb as default, got %v", p)
	}

	if _, ok := registry.Get("rpm"); ok {
		t.Error("expected not found for unknown format")
	}
}

func TestRegistryFirstIsDefault(t *testing.T) {
	registry := packager.NewRegistry()
	registry.Register(packager.NewWheel(nil))
	registry.Register(packager.NewFpmDeb(nil))

	p, ok := registry.Get("")
	if !ok || p.Name() != packager.FormatWheel {
		t.Errorf("expected first registered packager as default, got %v", p)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
