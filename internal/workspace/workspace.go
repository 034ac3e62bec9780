// Package workspace validates Python project workspaces and resolves paths
// relative to them.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SetupFile identifies a Python packaging workspace
const SetupFile = "setup.py"

// Exit codes of a failed workspace check
const (
	CodeMissingDirectory = 1
	CodeMissingSetup     = 2
)

// Error reports an invalid workspace
type Error struct {
	Path string
	Code int
}

func (e *Error) Error() string {
	if e.Code == CodeMissingDirectory {
		return fmt.Sprintf("Workspace directory %s does not exist", e.Path)
	}
	return fmt.Sprintf("There is no %s in the workspace directory %s", SetupFile, e.Path)
}

// ExitCode returns the exit code carried by err, if it is a workspace error
func ExitCode(err error) (int, bool) {
	var we *Error
	if errors.As(err, &we) {
		return we.Code, true
	}
	return 0, false
}

// Check verifies that dir exists and holds a setup.py
func Check(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return &Error{Path: dir, Code: CodeMissingDirectory}
	}
	if _, err := os.Stat(filepath.Join(dir, SetupFile)); err != nil {
		return &Error{Path: dir, Code: CodeMissingSetup}
	}
	return nil
}

// Abs validates dir and returns its absolute, cleaned path
func Abs(dir string) (string, error) {
	if err := Check(dir); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace %s: %w", dir, err)
	}
	return abs, nil
}

// Resolve returns path unchanged (cleaned) when absolute, joined onto base
// otherwise.
func Resolve(path, base string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// ResolveFromCwd resolves path against the current working directory
func ResolveFromCwd(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return Resolve(path, cwd), nil
}

// OutputDir returns the absolute output directory of a build: dir resolved
// against the caller's cwd, or <workspace>/dist when dir is empty.
func OutputDir(dir, workspace string) (string, error) {
	if dir == "" {
		return filepath.Join(workspace, "dist"), nil
	}
	return ResolveFromCwd(dir)
}
