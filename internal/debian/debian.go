// Package debian generates the debian/ directory dpkg-buildpackage needs to
// build a project with the dh-virtualenv sequence.
package debian

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"text/template"
	"time"

	"github.com/EffectiveRange/packaging-tools/internal/metadata"
	"github.com/google/renameio"
)

// Revision is the Debian revision appended to the upstream version
const Revision = "1"

// Options controls Generate
type Options struct {
	Project *metadata.Project

	// Python is the interpreter dh_virtualenv builds the virtualenv with
	Python string

	// ServiceFile is installed as the package's systemd unit
	ServiceFile string

	// ExtraFiles are globs of files copied into debian/ under their base
	// name, e.g. maintainer scripts named <package>.postinst
	ExtraFiles []string

	// Overwrite replaces control files of an existing debian/ directory
	Overwrite bool

	// Now is the changelog timestamp (default time.Now)
	Now time.Time
}

// Tree is a generated debian/ directory
type Tree struct {
	Dir string

	// Files lists the written files relative to Dir, sorted
	Files []string

	created bool
}

var templates = template.Must(template.New("debian").Parse(`
{{define "control"}}Source: {{.Package}}
Section: python
Priority: optional
Maintainer: {{.Maintainer}}
Build-Depends: debhelper (>= 12), python3, dh-virtualenv (>= 1.0)
Standards-Version: 4.5.0

Package: {{.Package}}
Architecture: all
Pre-Depends: dpkg (>= 1.16.1), python3
Depends: ${misc:Depends}
Description: {{.Description}}
{{end}}
{{define "changelog"}}{{.Package}} ({{.Version}}) unstable; urgency=medium

  * Release {{.Upstream}}

 -- {{.Maintainer}}  {{.Date}}
{{end}}
{{define "rules"}}#!/usr/bin/make -f

%:
	dh $@ --with python-virtualenv

override_dh_virtualenv:
	dh_virtualenv --python {{.Python}}
{{end}}
`))

type templateData struct {
	Package     string
	Version     string
	Upstream    string
	Maintainer  string
	Description string
	Python      string
	Date        string
}

// Version returns the Debian version of p, e.g. 1.0.0-1
func Version(p *metadata.Project) string {
	return p.Version + "-" + Revision
}

// PackageFile returns the file name dpkg-deb gives the built package
func PackageFile(p *metadata.Project) string {
	return fmt.Sprintf("%s_%s_all.deb", p.DebianName(), Version(p))
}

// Generate writes ws/debian for opts.Project
func Generate(ws string, opts Options) (*Tree, error) {
	if opts.Project == nil {
		return nil, errors.New("no project metadata")
	}
	dir := filepath.Join(ws, "debian")
	t := &Tree{Dir: dir}

	_, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Join(dir, "source"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		t.created = true
	case err != nil:
		return nil, err
	}

	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Python == "" {
		opts.Python = "/usr/bin/python3"
	}
	description := opts.Project.Description
	if description == "" {
		description = opts.Project.Name
	}
	data := templateData{
		Package:     opts.Project.DebianName(),
		Version:     Version(opts.Project),
		Upstream:    opts.Project.Version,
		Maintainer:  opts.Project.Maintainer(),
		Description: description,
		Python:      opts.Python,
		Date:        opts.Now.Format(time.RFC1123Z),
	}

	generated := []struct {
		name     string
		template string
		content  string
		perm     os.FileMode
	}{
		{name: "control", template: "control", perm: 0644},
		{name: "changelog", template: "changelog", perm: 0644},
		{name: "rules", template: "rules", perm: 0755},
		{name: "compat", content: "12\n", perm: 0644},
		{name: "source/format", content: "3.0 (quilt)\n", perm: 0644},
	}
	for _, g := range generated {
		path := filepath.Join(dir, g.name)
		if !t.created && !opts.Overwrite {
			if _, err := os.Stat(path); err == nil {
				continue
			}
		}
		content := []byte(g.content)
		if g.template != "" {
			var buf bytes.Buffer
			if err := templates.ExecuteTemplate(&buf, g.template, data); err != nil {
				return nil, fmt.Errorf("failed to render debian/%s: %w", g.name, err)
			}
			content = buf.Bytes()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := renameio.WriteFile(path, content, g.perm); err != nil {
			return nil, fmt.Errorf("failed to write debian/%s: %w", g.name, err)
		}
		t.Files = append(t.Files, g.name)
	}

	if opts.ServiceFile != "" {
		name := data.Package + ".service"
		if err := copyInto(opts.ServiceFile, filepath.Join(dir, name)); err != nil {
			return nil, err
		}
		t.Files = append(t.Files, name)
	}

	for _, pattern := range opts.ExtraFiles {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid extra files pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match extra files pattern %q", pattern)
		}
		for _, src := range matches {
			fi, err := os.Stat(src)
			if err != nil {
				return nil, err
			}
			if fi.IsDir() {
				continue
			}
			name := filepath.Base(src)
			if err := copyInto(src, filepath.Join(dir, name)); err != nil {
				return nil, err
			}
			t.Files = append(t.Files, name)
		}
	}

	sort.Strings(t.Files)
	return t, nil
}

// Created reports whether Generate created the directory
func (t *Tree) Created() bool {
	return t.created
}

// Remove deletes the directory if Generate created it
func (t *Tree) Remove() error {
	if !t.created {
		return nil
	}
	return os.RemoveAll(t.Dir)
}

func copyInto(src, dest string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := renameio.WriteFile(dest, data, fi.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}
