package testing

import (
	"os"
	"path/filepath"
	"testing"
)

// Tools holds paths of fake packaging tools
type Tools struct {
	Dir              string
	Python           string
	Fpm              string
	DpkgBuildpackage string
}

const fakePython = `#!/bin/sh
if [ "$1" != "setup.py" ]; then
  echo "fake python: unsupported invocation $*" >&2
  exit 2
fi
shift
case "$1" in
bdist_wheel)
  dist=dist
  while [ $# -gt 0 ]; do
    case "$1" in
    --dist-dir|-d) dist="$2"; shift ;;
    esac
    shift
  done
  mkdir -p "$dist" || exit 1
  echo "running bdist_wheel"
  echo "installing to build/bdist.linux-x86_64/wheel" >&2
  echo "wheel" > "$dist/@DIST@-@VERSION@-py3-none-any.whl"
  echo "creating '$dist/@DIST@-@VERSION@-py3-none-any.whl' and adding 'build/bdist.linux-x86_64/wheel' to it"
  ;;
*)
  for flag in "$@"; do
    case "$flag" in
    --name) echo "@NAME@" ;;
    --version) echo "@VERSION@" ;;
    --description) echo "Test project" ;;
    --author) echo "Ferenc Nandor Janky & Attila Gombos" ;;
    --author-email) echo "info@effective-range.com" ;;
    --url) echo "UNKNOWN" ;;
    esac
  done
  ;;
esac
`

// fakeFpm records the options it saw into the package it "builds"
const fakeFpm = `#!/bin/sh
out=.
python=python
options=""
while [ $# -gt 0 ]; do
  case "$1" in
  -p|--package) out="$2"; shift ;;
  --python-bin) python="$2"; shift ;;
  --deb-systemd|--after-install|--after-remove|--before-install|--before-remove)
    options="$options $1=$2"; shift ;;
  esac
  shift
done
if ! command -v "$python" >/dev/null 2>&1; then
  echo "{:message=>\"Process failed: $python failed (exit code 127). Full command was:[\\\"$python\\\", \\\"setup.py\\\"]\"}" >&2
  exit 1
fi
echo "{:message=>\"Running setup.py\", :level=>:info}" >&2
pkg="$out/python3-@NAME@_@VERSION@_all.deb"
echo "$options" > "$pkg" || exit 1
echo "Created package {:path=>\"$pkg\"}"
`

// fakeDpkgBuildpackage records the generated debian/ files into the package
const fakeDpkgBuildpackage = `#!/bin/sh
if [ ! -f debian/control ] || [ ! -f debian/changelog ]; then
  echo "dpkg-source: error: cannot read debian/control: No such file or directory" >&2
  exit 255
fi
pkg=$(sed -n 's/^Package: //p' debian/control | head -n 1)
ver=$(head -n 1 debian/changelog | sed 's/.*(\(.*\)).*/\1/')
deb="../${pkg}_${ver}_all.deb"
echo "dpkg-buildpackage: info: source package $pkg"
echo "dh_virtualenv: building virtualenv" >&2
ls debian > "$deb" || exit 1
echo "dpkg-deb: building package '$pkg' in '$deb'."
`

// NewTools writes fake python, fpm and dpkg-buildpackage scripts for f into
// a temporary directory
func NewTools(t *testing.T, f *Fixture) *Tools {
	t.Helper()

	dir := t.TempDir()
	write := func(name, script string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(f.expand(script)), 0755); err != nil {
			t.Fatalf("failed to write fake %s: %v", name, err)
		}
		return path
	}
	return &Tools{
		Dir:              dir,
		Python:           write("python3", fakePython),
		Fpm:              write("fpm", fakeFpm),
		DpkgBuildpackage: write("dpkg-buildpackage", fakeDpkgBuildpackage),
	}
}

// ReadFile returns the content of path, failing the test on error
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
