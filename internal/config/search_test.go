package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[bars.main]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perch.toml")
	writeFile(t, path)

	got, err := Resolve(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Fatalf("Resolve = %q, want %q", got, path)
	}
}

func TestResolveExplicitMissing(t *testing.T) {
	if _, err := Resolve("/nonexistent/perch.toml"); err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}

func TestResolveEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.toml")
	writeFile(t, path)
	t.Setenv("PERCH_CONFIG", path)

	got, err := Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Fatalf("Resolve = %q, want %q", got, path)
	}
}

func TestResolveXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PERCH_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "perch", "config.toml")
	writeFile(t, path)

	got, err := Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Fatalf("Resolve = %q, want %q", got, path)
	}
}

func TestSearchPathsOrder(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := SearchPaths()
	if paths[0] != "/xdg/perch/config.toml" {
		t.Errorf("first path = %q", paths[0])
	}
	if paths[len(paths)-1] != "/etc/xdg/perch/config.toml" {
		t.Errorf("last path = %q", paths[len(paths)-1])
	}
}

func TestDefaultLockFile(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := DefaultLockFile(); got != "/run/user/1000/perch.lock" {
		t.Fatalf("DefaultLockFile = %q", got)
	}

	t.Setenv("XDG_RUNTIME_DIR", "")
	if got := DefaultLockFile(); !strings.HasSuffix(got, "perch.lock") {
		t.Fatalf("DefaultLockFile = %q", got)
	}
}
