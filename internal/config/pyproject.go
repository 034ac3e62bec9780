package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// PyprojectFile holds per-project packaging defaults
const PyprojectFile = "pyproject.toml"

// Workspace holds the project defaults of the [tool.packaging] table in a
// workspace's pyproject.toml. Relative paths are relative to the workspace.
type Workspace struct {
	OutputDir   string   `toml:"output_dir"`
	Formats     []string `toml:"formats"`
	PythonBin   string   `toml:"python_bin"`
	FpmArgs     []string `toml:"fpm_args"`
	ServiceFile string   `toml:"service_file"`
	ExtraFiles  []string `toml:"extra_files"`
}

type pyproject struct {
	Tool struct {
		Packaging Workspace `toml:"packaging"`
	} `toml:"tool"`
}

// LoadWorkspace reads the [tool.packaging] table of dir/pyproject.toml.
// A missing file or table yields empty defaults.
func LoadWorkspace(dir string) (*Workspace, error) {
	path := filepath.Join(dir, PyprojectFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Workspace{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var p pyproject
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &p.Tool.Packaging, nil
}
