// Package testing provides test utilities and helpers for the packaging
// wrappers: a fixture Python project and fake packaging tools that print the
// output lines of the real ones.
package testing

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Fixture is a throwaway Python project laid out like a real one
type Fixture struct {
	// Root is the scratch file system root, e.g. /tmp/x/test_root
	Root string
	// Project is the workspace, Root/etc/test-project
	Project string

	Name    string
	Version string
}

var fixtureFiles = map[string]string{
	"setup.py": `from setuptools import setup

setup(
    name='@NAME@',
    version='@VERSION@',
    description='Test project',
    long_description='Test project for testing Python packaging',
    author='Ferenc Nandor Janky & Attila Gombos',
    author_email='info@effective-range.com',
    packages=['test_module'],
    scripts=['bin/test-project.py'],
)
`,
	"bin/test-project.py": `from test_module import TestClass


def main() -> None:
    TestClass().test_method()


if __name__ == '__main__':
    main()
`,
	"test_module/__init__.py": `class TestClass:
    def test_method(self) -> None:
        print('test method called')
`,
	"service/test-project.service": `[Unit]
Description=Test project

[Service]
ExecStart=/usr/bin/test-project.py

[Install]
WantedBy=multi-user.target
`,
	"scripts/test-project.postinst": `#!/bin/sh
echo "test-project successfully installed"
`,
	"scripts/test-project.postrm": `#!/bin/sh
echo "test-project successfully removed"
`,
}

// NewFixture writes the fixture project into a fresh temporary directory
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	root := filepath.Join(t.TempDir(), "test_root")
	f := &Fixture{
		Root:    root,
		Project: filepath.Join(root, "etc", "test-project"),
		Name:    "test-project",
		Version: "1.0.0",
	}
	for name, content := range fixtureFiles {
		path := filepath.Join(f.Project, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create fixture dir: %v", err)
		}
		mode := os.FileMode(0644)
		if strings.HasPrefix(name, "scripts/") {
			mode = 0755
		}
		if err := os.WriteFile(path, []byte(f.expand(content)), mode); err != nil {
			t.Fatalf("failed to write fixture file %s: %v", name, err)
		}
	}
	return f
}

func (f *Fixture) expand(s string) string {
	return strings.NewReplacer(
		"@NAME@", f.Name,
		"@DIST@", strings.ReplaceAll(f.Name, "-", "_"),
		"@VERSION@", f.Version,
	).Replace(s)
}

// Path returns a path below the project
func (f *Fixture) Path(elem ...string) string {
	return filepath.Join(append([]string{f.Project}, elem...)...)
}

// WheelName is the wheel built from the fixture
func (f *Fixture) WheelName() string {
	return f.expand("@DIST@-@VERSION@-py3-none-any.whl")
}

// FpmDebName is the Debian package fpm builds from the fixture
func (f *Fixture) FpmDebName() string {
	return f.expand("python3-@NAME@_@VERSION@_all.deb")
}

// VirtualenvDebName is the Debian package dh-virtualenv builds from the fixture
func (f *Fixture) VirtualenvDebName() string {
	return f.expand("@NAME@_@VERSION@-1_all.deb")
}

// RequireTools skips the test unless all named executables are on PATH
func RequireTools(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}
}

// AssertFile fails the test unless path is a regular file
func AssertFile(t *testing.T, path string) {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected file %s: %v", path, err)
	}
	if !fi.Mode().IsRegular() {
		t.Fatalf("expected %s to be a regular file, mode %v", path, fi.Mode())
	}
}
