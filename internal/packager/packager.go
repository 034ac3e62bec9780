// Package packager defines the packaging formats the wrappers can build.
// Each Packager drives one external tool through the command runner and
// reports the absolute paths of the files it produced.
package packager

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"

	"github.com/EffectiveRange/packaging-tools/internal/runner"
	"github.com/EffectiveRange/packaging-tools/internal/workspace"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// Format names
const (
	FormatWheel        = "wheel"
	FormatFpmDeb       = "fpm-deb"
	FormatDhVirtualenv = "dh-virtualenv"
)

// Options configures a packaging run. Paths are absolute.
type Options struct {
	OutputDir string

	PythonBin           string
	FpmBin              string
	DpkgBuildpackageBin string

	// FpmArgs are passed to fpm verbatim, e.g. "--deb-systemd unit.service"
	FpmArgs []string

	ServiceFile string
	ExtraFiles  []string

	// KeepDebian keeps a generated debian/ directory after the build
	KeepDebian bool
}

// Packager builds one package format from a workspace
type Packager interface {
	// Name returns the format name, e.g. "wheel"
	Name() string

	// Package builds ws into opts.OutputDir and returns the produced files
	Package(ctx context.Context, ws string, opts Options) ([]string, error)
}

// Registry manages available packagers and allows lookup by name.
type Registry struct {
	packagers     map[string]Packager
	defaultFormat string
}

// NewRegistry creates an empty packager registry.
func NewRegistry() *Registry {
	return &Registry{
		packagers: make(map[string]Packager),
	}
}

// DefaultRegistry returns a registry holding every supported format, with
// fpm-deb as the default
func DefaultRegistry(r *runner.Runner) *Registry {
	reg := NewRegistry()
	reg.Register(NewWheel(r))
	reg.Register(NewFpmDeb(r))
	reg.Register(NewDhVirtualenv(r))
	reg.SetDefault(FormatFpmDeb)
	return reg
}

// AllFormats lists every supported format in build order
var AllFormats = []string{FormatWheel, FormatFpmDeb, FormatDhVirtualenv}

// Register adds a packager to the registry.
func (r *Registry) Register(p Packager) {
	r.packagers[p.Name()] = p
	if r.defaultFormat == "" {
		r.defaultFormat = p.Name()
	}
}

// SetDefault sets which packager to use when none is specified.
func (r *Registry) SetDefault(name string) {
	r.defaultFormat = name
}

// Get returns a packager by name, or the default if name is empty.
func (r *Registry) Get(name string) (Packager, bool) {
	if name == "" {
		name = r.defaultFormat
	}
	p, ok := r.packagers[name]
	return p, ok
}

// Names returns the registered format names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.packagers))
	for name := range r.packagers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// collect resolves the paths a tool reported relative to ws and verifies
// that the files exist. A tool that reported nothing is an error.
func collect(logger log.FieldLogger, format, ws string, paths iter.Seq[string]) ([]string, error) {
	var artifacts []string
	for path := range paths {
		abs := workspace.Resolve(path, ws)
		fi, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%s reported %s, but it does not exist: %w", format, abs, err)
		}
		logger.WithFields(log.Fields{
			"format": format,
			"path":   abs,
			"size":   humanize.Bytes(uint64(fi.Size())),
		}).Info("Package created")
		artifacts = append(artifacts, abs)
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("%s did not report a package", format)
	}
	return artifacts, nil
}

func prepareOutputDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("no output directory")
	}
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("output directory %s is not absolute", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
