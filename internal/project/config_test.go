package project

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeManifest(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", ManifestName, err)
	}
	return path
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[sync]\n")
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if !reflect.DeepEqual(m.Config, DefaultConfig()) {
		t.Fatalf("Config = %+v, want defaults %+v", m.Config, DefaultConfig())
	}
	if got, want := m.RootDir(), filepath.Join(dir, "lib", "src"); got != want {
		t.Fatalf("RootDir = %q, want %q", got, want)
	}
}

func TestLoadManifestOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `# test manifest
[sync]
root = "packages/core/lib"
generated = [".g.dart", ".freezed.dart"]
exclude = ["l10n", "gen*"]
header = ["library", "//"]
jobs = 4
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	cfg := m.Config
	if cfg.Root != "packages/core/lib" {
		t.Fatalf("Root = %q", cfg.Root)
	}
	if !reflect.DeepEqual(cfg.Generated, []string{".g.dart", ".freezed.dart"}) {
		t.Fatalf("Generated = %q", cfg.Generated)
	}
	if !reflect.DeepEqual(cfg.Exclude, []string{"l10n", "gen*"}) {
		t.Fatalf("Exclude = %q", cfg.Exclude)
	}
	if diff := cmp.Diff([]string{"library", "//"}, cfg.Header); diff != "" {
		t.Fatalf("Header mismatch (-want +got):\n%s", diff)
	}
	if cfg.Jobs != 4 {
		t.Fatalf("Jobs = %d, want 4", cfg.Jobs)
	}
	d := cfg.Dialect()
	if !d.IsGenerated("a.freezed.dart") {
		t.Fatalf("dialect must use configured generated suffixes")
	}
	if !d.IsHeader("// note") || !d.IsHeader("library app;") {
		t.Fatalf("dialect must use configured header tokens")
	}
}

func TestLoadManifestErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"missing section", "[other]\nx = 1\n", nil},
		{"unknown key", "[sync]\nroots = \"x\"\n", ErrUnknownKey},
		{"no sync", "", ErrSyncSectionMissing},
		{"bad toml", "[sync\n", nil},
		{"negative jobs", "[sync]\njobs = -1\n", nil},
		{"bad extension", "[sync]\nextension = \"dart\"\n", nil},
		{"bad pattern", "[sync]\nexclude = [\"[\"]\n", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tc.data)
			_, err := LoadManifest(path)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[sync]\nroot = \"lib\"\n")
	nested := filepath.Join(root, "lib", "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	m, ok, err := Discover(nested)
	if err != nil || !ok {
		t.Fatalf("Discover = (%v, %v, %v)", m, ok, err)
	}
	if got, want := m.RootDir(), filepath.Join(root, "lib"); got != want {
		t.Fatalf("RootDir = %q, want %q", got, want)
	}
}

func TestDefaultManifestLoads(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, DefaultManifest(""))
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest(DefaultManifest): %v", err)
	}
	if m.Config.Root != DefaultRoot {
		t.Fatalf("Root = %q, want %q", m.Config.Root, DefaultRoot)
	}
	if len(m.Config.Exclude) != 0 {
		t.Fatalf("Exclude = %q", m.Config.Exclude)
	}
	if m.Config.Dialect().IsHeader("// note") {
		t.Fatalf("comments must not join the header by default")
	}
}
