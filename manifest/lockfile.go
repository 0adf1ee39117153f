package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// ---------------------------------------------------------------------------
// Lockfile: pinned dependency versions
// ---------------------------------------------------------------------------

// LockfileName is written next to info.art.
const LockfileName = "arturo.lock"

// Lockfile pins the resolved version and origin of every dependency.
type Lockfile struct {
	Packages map[string]LockedPackage `toml:"packages"`
}

// LockedPackage is a single pinned dependency.
type LockedPackage struct {
	Version string `toml:"version"`
	URL     string `toml:"url,omitempty"`
}

// LoadLockfile reads the lockfile in dir; a missing file yields an
// empty lockfile.
func LoadLockfile(dir string) (*Lockfile, error) {
	path := filepath.Join(dir, LockfileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Lockfile{Packages: map[string]LockedPackage{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if lf.Packages == nil {
		lf.Packages = map[string]LockedPackage{}
	}
	return &lf, nil
}

// Save writes the lockfile to dir.
func (lf *Lockfile) Save(dir string) error {
	path := filepath.Join(dir, LockfileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(lf); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

// Pin records a resolved dependency.
func (lf *Lockfile) Pin(name string, pkg LockedPackage) {
	lf.Packages[name] = pkg
}

// Names returns the pinned package names, sorted.
func (lf *Lockfile) Names() []string {
	names := make([]string, 0, len(lf.Packages))
	for n := range lf.Packages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
