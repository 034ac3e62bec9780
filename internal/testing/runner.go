package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Wrappers lists the wrapper binaries under cmd/
var Wrappers = []string{"pack_python", "pack_wheel", "fpm-deb", "pack_dh-virtualenv"}

// TestResult holds the results of running a wrapper binary
type TestResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Lines returns the non-empty stdout lines
func (r *TestResult) Lines() []string {
	var lines []string
	for _, line := range strings.Split(r.Stdout, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// TestRunner builds the wrapper binaries once per test and runs them
type TestRunner struct {
	RepoRoot string
	BinDir   string
	t        *testing.T
}

// NewTestRunner builds every wrapper into a temporary directory. The test
// is skipped when no go toolchain is available.
func NewTestRunner(t *testing.T) (*TestRunner, error) {
	t.Helper()
	RequireTools(t, "go")

	repoRoot, err := findRepoRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find repo root: %w", err)
	}
	r := &TestRunner{
		RepoRoot: repoRoot,
		BinDir:   t.TempDir(),
		t:        t,
	}
	for _, name := range Wrappers {
		if err := r.build(name); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// findRepoRoot finds the repository root by looking for go.mod
func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod in any parent directory")
		}
		dir = parent
	}
}

func (r *TestRunner) build(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "build", "-o", filepath.Join(r.BinDir, name), "./cmd/"+name)
	cmd.Dir = r.RepoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("build of %s failed: %v\noutput: %s", name, err, string(out))
	}
	return nil
}

// Run runs a wrapper binary in dir with extra environment variables
func (r *TestRunner) Run(dir, wrapper string, timeout time.Duration, env []string, args ...string) (*TestResult, error) {
	r.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, filepath.Join(r.BinDir, wrapper), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	result := &TestResult{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// ToolEnv points the wrappers at the fake tools
func ToolEnv(tools *Tools) []string {
	return []string{
		"PACKAGING_CONFIG=" + filepath.Join(tools.Dir, "absent.yaml"),
		"PACKAGING_PYTHON=" + tools.Python,
		"PACKAGING_FPM=" + tools.Fpm,
		"PACKAGING_DPKG_BUILDPACKAGE=" + tools.DpkgBuildpackage,
	}
}

// Assertions provides test assertion helpers
type Assertions struct {
	t      *testing.T
	result *TestResult
}

// NewAssertions creates a new assertions helper
func NewAssertions(t *testing.T, result *TestResult) *Assertions {
	return &Assertions{t: t, result: result}
}

// ExitCode asserts the exit code
func (a *Assertions) ExitCode(expected int) *Assertions {
	a.t.Helper()
	if a.result.ExitCode != expected {
		a.t.Errorf("expected exit code %d, got %d\nstderr:\n%s", expected, a.result.ExitCode, a.result.Stderr)
	}
	return a
}

// Stdout asserts stdout holds exactly the given lines
func (a *Assertions) Stdout(lines ...string) *Assertions {
	a.t.Helper()
	got := a.result.Lines()
	if strings.Join(got, "\n") != strings.Join(lines, "\n") {
		a.t.Errorf("stdout = %q, want %q", got, lines)
	}
	return a
}

// StderrContains asserts stderr contains a string
func (a *Assertions) StderrContains(expected string) *Assertions {
	a.t.Helper()
	if !strings.Contains(a.result.Stderr, expected) {
		a.t.Errorf("stderr does not contain %q, got:\n%s", expected, a.result.Stderr)
	}
	return a
}

// DurationLessThan asserts the execution took less than the specified duration
func (a *Assertions) DurationLessThan(d time.Duration) *Assertions {
	a.t.Helper()
	if a.result.Duration >= d {
		a.t.Errorf("execution took %v, expected less than %v", a.result.Duration, d)
	}
	return a
}
