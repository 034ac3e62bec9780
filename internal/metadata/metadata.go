// Package metadata reads the distribution metadata of a setup.py project by
// asking setuptools for it.
package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/EffectiveRange/packaging-tools/internal/runner"
)

// Project is the metadata of a Python project
type Project struct {
	Name        string
	Version     string
	Description string
	Author      string
	AuthorEmail string
	URL         string
}

// queryFlags are printed by setuptools one value per line, in this order
var queryFlags = []string{"--name", "--version", "--description", "--author", "--author-email", "--url"}

// valueMatcher skips the progress and warning lines setuptools may print
// on stdout
const valueMatcher = `(?!running |warning: |WARNING: )(.*)`

// Query runs `<python> setup.py --name --version ...` in ws
func Query(ctx context.Context, r *runner.Runner, ws, python string) (*Project, error) {
	line := runner.Join(append([]string{python, "setup.py"}, queryFlags...)...)
	values, err := r.Lines(ctx, ws, runner.Shell(line), valueMatcher)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("setup.py in %s did not report name and version", ws)
	}

	field := func(i int) string {
		if i >= len(values) {
			return ""
		}
		v := strings.TrimSpace(values[i])
		if v == "UNKNOWN" {
			return ""
		}
		return v
	}
	p := &Project{
		Name:        field(0),
		Version:     field(1),
		Description: field(2),
		Author:      field(3),
		AuthorEmail: field(4),
		URL:         field(5),
	}
	if p.Name == "" || p.Version == "" {
		return nil, fmt.Errorf("setup.py in %s reported an empty name or version", ws)
	}
	return p, nil
}

// DebianName returns the Debian source/binary package name of the project
func (p *Project) DebianName() string {
	return strings.ToLower(strings.ReplaceAll(p.Name, "_", "-"))
}

// DistName returns the normalized distribution name used in wheel filenames
func (p *Project) DistName() string {
	return strings.ReplaceAll(strings.ReplaceAll(p.Name, "-", "_"), ".", "_")
}

// Maintainer returns the "Name <email>" maintainer field
func (p *Project) Maintainer() string {
	switch {
	case p.Author != "" && p.AuthorEmail != "":
		return fmt.Sprintf("%s <%s>", p.Author, p.AuthorEmail)
	case p.AuthorEmail != "":
		return fmt.Sprintf("%s <%s>", p.AuthorEmail, p.AuthorEmail)
	case p.Author != "":
		return p.Author
	}
	return "Unknown <unknown@localhost>"
}
