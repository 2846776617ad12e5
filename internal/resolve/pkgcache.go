package resolve

import (
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/mod/semver"
)

// packagesDir implements spec §4.5's "Packages directory" rule:
// $QUADRATE_PATH if set, else $XDG_DATA_HOME/quadrate/packages, else
// $HOME/quadrate/packages.
func packagesDir() string {
	if p := os.Getenv("QUADRATE_PATH"); p != "" {
		return p
	}
	if x := os.Getenv("XDG_DATA_HOME"); x != "" {
		return filepath.Join(x, "quadrate", "packages")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "quadrate", "packages")
}

// pinSet tracks command-line `-l name@version` pins plus, for names with no
// explicit pin, the most recently discovered version under the packages
// directory, per spec §4.5.
type pinSet struct {
	pins map[string]string
}

func newPinSet(cliPins map[string]string) *pinSet {
	p := &pinSet{pins: map[string]string{}}
	for k, v := range cliPins {
		p.pins[k] = normalizeVersion(v)
	}
	return p
}

func normalizeVersion(v string) string {
	if v == "" {
		return v
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}

// resolveVersion returns the version directory entry to use for a logical
// package name: the CLI pin if one was given, else the highest semver
// version present under packagesDir()/<name>@*, using golang.org/x/mod/semver
// for the comparison (the teacher has no package manager at all; this
// mirrors how the pack's modernc.org/ccgo toolchain picks amongst installed
// component versions).
func (p *pinSet) resolveVersion(name string) (string, bool) {
	if v, ok := p.pins[name]; ok {
		return v, true
	}
	entries, err := os.ReadDir(packagesDir())
	if err != nil {
		return "", false
	}
	prefix := name + "@"
	best := ""
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n := e.Name()
		if len(n) <= len(prefix) || n[:len(prefix)] != prefix {
			continue
		}
		v := n[len(prefix):]
		if !semver.IsValid(v) {
			continue
		}
		if best == "" || semver.Compare(v, best) > 0 {
			best = v
		}
	}
	if best == "" {
		return "", false
	}
	p.pins[name] = best
	return best, true
}

// sortedVersions lists every version discovered for a name, newest first.
// Nothing in the compiler calls it; --verbose prints no resolution trace.
func sortedVersions(name string) []string {
	entries, err := os.ReadDir(packagesDir())
	if err != nil {
		return nil
	}
	prefix := name + "@"
	var versions []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n := e.Name()
		if len(n) <= len(prefix) || n[:len(prefix)] != prefix {
			continue
		}
		v := n[len(prefix):]
		if semver.IsValid(v) {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return semver.Compare(versions[i], versions[j]) > 0 })
	return versions
}
