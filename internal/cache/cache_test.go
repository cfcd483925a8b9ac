package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func statFile(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info
}

func TestDiskCacheRoundTrip(t *testing.T) {
	cacheDir := t.TempDir()
	tree := t.TempDir()
	file := filepath.Join(tree, "a.dart")
	if err := os.WriteFile(file, []byte("part of 'b.dart';\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := OpenDir(cacheDir, tree)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if _, ok := c.Lookup(file, statFile(t, file)); ok {
		t.Fatalf("empty cache must miss")
	}
	c.Store(file, statFile(t, file), true)
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := OpenDir(cacheDir, tree)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	subPart, ok := reopened.Lookup(file, statFile(t, file))
	if !ok || !subPart {
		t.Fatalf("Lookup = (%v, %v), want (true, true)", subPart, ok)
	}
	hits, misses := reopened.Stats()
	if hits != 1 || misses != 0 {
		t.Fatalf("Stats = (%d, %d), want (1, 0)", hits, misses)
	}
}

func TestDiskCacheInvalidatesOnModification(t *testing.T) {
	tree := t.TempDir()
	file := filepath.Join(tree, "a.dart")
	if err := os.WriteFile(file, []byte("class A {}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := OpenDir(t.TempDir(), tree)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	c.Store(file, statFile(t, file), false)

	if err := os.WriteFile(file, []byte("part of 'b.dart';\nclass A {}\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(file, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, ok := c.Lookup(file, statFile(t, file)); ok {
		t.Fatalf("modified file must miss")
	}
}

func TestDiskCacheIgnoresOtherRoots(t *testing.T) {
	cacheDir := t.TempDir()
	tree := t.TempDir()
	file := filepath.Join(tree, "a.dart")
	if err := os.WriteFile(file, []byte("class A {}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := OpenDir(cacheDir, tree)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	c.Store(file, statFile(t, file), false)
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other, err := OpenDir(cacheDir, filepath.Join(tree, "elsewhere"))
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if _, ok := other.Lookup(file, statFile(t, file)); ok {
		t.Fatalf("cache of another root must not be shared")
	}
}

func TestDiskCacheCorruptFileIsEmpty(t *testing.T) {
	cacheDir := t.TempDir()
	tree := t.TempDir()
	c, err := OpenDir(cacheDir, tree)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(c.path(), []byte("not msgpack at all"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	again, err := OpenDir(cacheDir, tree)
	if err != nil {
		t.Fatalf("OpenDir on corrupt cache: %v", err)
	}
	if len(again.entries) != 0 {
		t.Fatalf("expected empty entries, got %d", len(again.entries))
	}
}

func TestNilDiskCache(t *testing.T) {
	var c *DiskCache
	if _, ok := c.Lookup("x", nil); ok {
		t.Fatalf("nil cache must miss")
	}
	c.Store("x", nil, true)
	if err := c.Save(); err != nil {
		t.Fatalf("nil Save: %v", err)
	}
}

func TestDiskCacheDropAll(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "barrel")
	tree := t.TempDir()
	file := filepath.Join(tree, "a.dart")
	if err := os.WriteFile(file, []byte("class A {}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := OpenDir(cacheDir, tree)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	c.Store(file, statFile(t, file), false)
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, err := os.Stat(cacheDir); !os.IsNotExist(err) {
		t.Fatalf("cache dir still present (stat err %v)", err)
	}
	if _, ok := c.Lookup(file, statFile(t, file)); ok {
		t.Fatalf("entries must be dropped from memory too")
	}
}
