package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindManifestNotFound(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// The temp dir may sit under a tree that has its own manifest, so
	// only a match inside dir would be wrong.
	path, ok, err := FindManifest(nested)
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if ok {
		if rel, relErr := filepath.Rel(dir, path); relErr == nil && filepath.IsLocal(rel) {
			t.Fatalf("unexpected manifest %q", path)
		}
	}
}

func TestFindManifestNearest(t *testing.T) {
	dir := t.TempDir()
	inner := filepath.Join(dir, "pkg")
	if err := os.MkdirAll(filepath.Join(inner, "lib"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeManifest(t, dir, "[sync]\n")
	want := writeManifest(t, inner, "[sync]\n")
	got, ok, err := FindManifest(filepath.Join(inner, "lib"))
	if err != nil || !ok {
		t.Fatalf("FindManifest = (%q, %v, %v)", got, ok, err)
	}
	if got != want {
		t.Fatalf("FindManifest = %q, want %q", got, want)
	}
}
