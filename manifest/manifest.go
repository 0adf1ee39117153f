// Package manifest handles info.art package manifests and the local
// package cache. A manifest is ordinary source: a block that evaluates
// to a dictionary with the recognized keys name, version, entry,
// depends, and url.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/moeinimoein/arturo/parser"
	"github.com/moeinimoein/arturo/value"
	"github.com/moeinimoein/arturo/vm"
)

var log = commonlog.GetLogger("arturo.pkg")

// ManifestFile is the canonical manifest filename.
const ManifestFile = "info.art"

// Manifest describes one package.
type Manifest struct {
	Name    string
	Version string
	Entry   string
	URL     string
	Depends map[string]string

	// Dir is the directory containing the info.art file.
	Dir string
}

// Load evaluates the info.art manifest in dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	root, err := parser.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	machine := vm.New()
	dict, err := machine.EvalDictionary(root)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", path, err)
	}

	m := &Manifest{Dir: dir, Depends: map[string]string{}}
	if v, ok := dict.Get("name"); ok {
		m.Name = v.Str
	}
	if v, ok := dict.Get("version"); ok {
		m.Version = value.Printable(v, nil)
	}
	if v, ok := dict.Get("entry"); ok {
		m.Entry = v.Str
	}
	if v, ok := dict.Get("url"); ok {
		m.URL = v.Str
	}
	if v, ok := dict.Get("depends"); ok && v.Kind == value.Dictionary {
		for i := range v.Dct.Keys() {
			k, dv := v.Dct.At(i)
			m.Depends[k] = value.Printable(dv, nil)
		}
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%s: manifest has no name", path)
	}
	log.Debugf("loaded manifest for %s %s", m.Name, m.Version)
	return m, nil
}

// EntryPath resolves the package entry script, defaulting to main.art.
func (m *Manifest) EntryPath() string {
	entry := m.Entry
	if entry == "" {
		entry = "main.art"
	}
	return filepath.Join(m.Dir, entry)
}

// ---------------------------------------------------------------------------
// Cache layout
// ---------------------------------------------------------------------------

// Home returns the arturo home directory, honoring ARTURO_HOME.
func Home() (string, error) {
	if h := os.Getenv("ARTURO_HOME"); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".arturo"), nil
}

// PackagesDir returns the package cache directory.
func PackagesDir() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "packages"), nil
}

// Resolver locates a package version, returning its directory. The
// remote half of package management plugs in here; the core ships a
// cache-only resolver.
type Resolver func(name, version string) (string, error)

// CacheResolver resolves packages against the local cache only.
func CacheResolver(name, version string) (string, error) {
	base, err := PackagesDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, name, version)
	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
		return "", fmt.Errorf("package %s %s not cached: %w", name, version, err)
	}
	return dir, nil
}

// ResolveDependencies resolves every dependency of m through resolve,
// returning manifest objects in a deterministic order.
func ResolveDependencies(m *Manifest, resolve Resolver) ([]*Manifest, error) {
	names := make([]string, 0, len(m.Depends))
	for name := range m.Depends {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Manifest, 0, len(names))
	for _, name := range names {
		dir, err := resolve(name, m.Depends[name])
		if err != nil {
			return nil, err
		}
		dep, err := Load(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}
