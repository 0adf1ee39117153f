package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
		name: "grafito"
		version: 1.2.3
		entry: "main.art"
		url: "https://example.org/grafito"
		depends: #[
			helpers: 0.3.0
		]
	`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "grafito" {
		t.Errorf("name = %q", m.Name)
	}
	if m.Version != "1.2.3" {
		t.Errorf("version = %q", m.Version)
	}
	if m.Entry != "main.art" {
		t.Errorf("entry = %q", m.Entry)
	}
	if m.Depends["helpers"] != "0.3.0" {
		t.Errorf("depends = %v", m.Depends)
	}
	if m.EntryPath() != filepath.Join(dir, "main.art") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `name: "tiny" version: 0.0.1`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.EntryPath() != filepath.Join(dir, "main.art") {
		t.Errorf("default entry = %q", m.EntryPath())
	}
	if len(m.Depends) != 0 {
		t.Errorf("depends should default empty: %v", m.Depends)
	}
}

func TestLoadManifestRequiresName(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `version: 1.0.0`)
	if _, err := Load(dir); err == nil {
		t.Errorf("nameless manifest should fail")
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Errorf("missing info.art should fail")
	}
}

func TestHomeHonorsEnv(t *testing.T) {
	t.Setenv("ARTURO_HOME", "/tmp/arturo-test-home")
	home, err := Home()
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if home != "/tmp/arturo-test-home" {
		t.Errorf("home = %q", home)
	}
	pkgs, _ := PackagesDir()
	if pkgs != filepath.Join("/tmp/arturo-test-home", "packages") {
		t.Errorf("packages dir = %q", pkgs)
	}
}

func TestCacheResolver(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ARTURO_HOME", root)

	pkgDir := filepath.Join(root, "packages", "helpers", "0.3.0")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeManifest(t, pkgDir, `name: "helpers" version: 0.3.0`)

	dir, err := CacheResolver("helpers", "0.3.0")
	if err != nil {
		t.Fatalf("CacheResolver: %v", err)
	}
	if dir != pkgDir {
		t.Errorf("dir = %q, want %q", dir, pkgDir)
	}

	if _, err := CacheResolver("helpers", "9.9.9"); err == nil {
		t.Errorf("uncached version should not resolve")
	}
}

func TestResolveDependencies(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ARTURO_HOME", root)

	pkgDir := filepath.Join(root, "packages", "helpers", "0.3.0")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeManifest(t, pkgDir, `name: "helpers" version: 0.3.0`)

	appDir := t.TempDir()
	writeManifest(t, appDir, `
		name: "app"
		version: 1.0.0
		depends: #[helpers: 0.3.0]
	`)
	app, err := Load(appDir)
	if err != nil {
		t.Fatalf("Load app: %v", err)
	}

	deps, err := ResolveDependencies(app, CacheResolver)
	if err != nil {
		t.Fatalf("ResolveDependencies: %v", err)
	}
	if len(deps) != 1 || deps[0].Name != "helpers" {
		t.Errorf("deps = %v", deps)
	}
}

func TestLockfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lf := &Lockfile{Packages: map[string]LockedPackage{}}
	lf.Pin("helpers", LockedPackage{Version: "0.3.0", URL: "https://example.org/helpers"})
	if err := lf.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadLockfile(dir)
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	got, ok := loaded.Packages["helpers"]
	if !ok || got.Version != "0.3.0" {
		t.Errorf("loaded = %+v", loaded.Packages)
	}
	if names := loaded.Names(); len(names) != 1 || names[0] != "helpers" {
		t.Errorf("names = %v", names)
	}
}

func TestLockfileMissingIsEmpty(t *testing.T) {
	lf, err := LoadLockfile(t.TempDir())
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if len(lf.Packages) != 0 {
		t.Errorf("packages = %v", lf.Packages)
	}
}
