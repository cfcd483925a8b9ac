package classify

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"barrel/internal/dialect"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestClassify(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "widgets")
	writeFile(t, filepath.Join(dir, "button.dart"), "class Button {}\n")
	writeFile(t, filepath.Join(dir, "widgets.dart"), "export 'button.dart';\n")
	writeFile(t, filepath.Join(dir, "button_state.dart"), "// state\n  part of 'button.dart';\n\nclass S {}\n")
	writeFile(t, filepath.Join(dir, "late.dart"), "class A {}\n\n\npart of 'a.dart';")

	c := New(dialect.Default())
	cases := []struct {
		name      string
		aggregate bool
		subPart   bool
	}{
		{"button.dart", false, false},
		{"widgets.dart", true, false},
		{"button_state.dart", false, true},
		{"late.dart", false, true},
	}
	for _, tc := range cases {
		sf, err := c.Classify(filepath.Join(dir, tc.name))
		if err != nil {
			t.Fatalf("Classify(%s): %v", tc.name, err)
		}
		if sf.Name != tc.name {
			t.Fatalf("Name = %q, want %q", sf.Name, tc.name)
		}
		if sf.IsAggregator != tc.aggregate {
			t.Fatalf("%s: IsAggregator = %v, want %v", tc.name, sf.IsAggregator, tc.aggregate)
		}
		if sf.IsSubPart != tc.subPart {
			t.Fatalf("%s: IsSubPart = %v, want %v", tc.name, sf.IsSubPart, tc.subPart)
		}
		if sf.IsGenerated {
			t.Fatalf("%s: unexpectedly generated", tc.name)
		}
	}
}

func TestClassifyGeneratedIsNotRead(t *testing.T) {
	dir := t.TempDir()
	// The file does not exist: a generated file must be classified by name only.
	sf, err := New(dialect.Default()).Classify(filepath.Join(dir, "model.g.dart"))
	if err != nil {
		t.Fatalf("Classify generated: %v", err)
	}
	if !sf.IsGenerated || sf.Exportable() {
		t.Fatalf("expected generated, non-exportable file, got %+v", sf)
	}
}

func TestClassifyMissingFileIsReadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.dart")
	_, err := New(dialect.Default()).Classify(path)
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ReadError, got %v", err)
	}
	if readErr.Path != path {
		t.Fatalf("ReadError.Path = %q, want %q", readErr.Path, path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ReadError to unwrap to fs.ErrNotExist")
	}
}

func TestHasPartOf(t *testing.T) {
	d := dialect.Default()
	cases := []struct {
		content string
		want    bool
	}{
		{"part of 'x.dart';\n", true},
		{"\xEF\xBB\xBFpart of x;\n", true},
		{"library x;\npart 'x.g.dart';\n", false},
		{"final partOfSpeech = 1;\n", false},
		{"", false},
		{"class A {}\r\n\tpart of lib;\r\n", true},
	}
	for _, tc := range cases {
		if got := HasPartOf([]byte(tc.content), d); got != tc.want {
			t.Fatalf("HasPartOf(%q) = %v, want %v", tc.content, got, tc.want)
		}
	}
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]bool
	stores  int
}

func (m *memCache) Lookup(path string, _ fs.FileInfo) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[path]
	return v, ok
}

func (m *memCache) Store(path string, _ fs.FileInfo, subPart bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[path] = subPart
	m.stores++
}

func TestClassifyUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.dart")
	writeFile(t, path, "class A {}\n")

	cache := &memCache{entries: map[string]bool{}}
	c := &Classifier{Dialect: dialect.Default(), Cache: cache}
	sf, err := c.Classify(path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if sf.IsSubPart || cache.stores != 1 {
		t.Fatalf("expected one store of a non-part file, got %+v stores=%d", sf, cache.stores)
	}

	cache.entries[path] = true
	sf, err = c.Classify(path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !sf.IsSubPart {
		t.Fatalf("expected cached result to be used")
	}
	if cache.stores != 1 {
		t.Fatalf("cache hit must not store again, stores=%d", cache.stores)
	}
}
