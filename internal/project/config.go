package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"barrel/internal/dialect"
)

// DefaultRoot is the traversal root used when neither the command line nor
// the manifest names one, relative to the project root.
const DefaultRoot = "lib/src"

// Config is the [sync] section of barrel.toml with defaults applied.
type Config struct {
	Root           string
	Extension      string
	Generated      []string
	Exclude        []string
	Header         []string
	ExportTemplate string
	ImportToken    string
	ExportToken    string
	PartOfToken    string
	Jobs           int
}

// Manifest is a loaded barrel.toml.
type Manifest struct {
	Path   string
	Dir    string
	Config Config
}

var (
	// ErrSyncSectionMissing indicates that [sync] is missing in the manifest.
	ErrSyncSectionMissing = errors.New("missing [sync]")
	// ErrUnknownKey indicates a key the manifest format does not define.
	ErrUnknownKey = errors.New("unknown key")
)

type manifestFile struct {
	Sync struct {
		Root           string   `toml:"root"`
		Extension      string   `toml:"extension"`
		Generated      []string `toml:"generated"`
		Exclude        []string `toml:"exclude"`
		Header         []string `toml:"header"`
		ExportTemplate string   `toml:"export_template"`
		Import         string   `toml:"import"`
		Export         string   `toml:"export"`
		PartOf         string   `toml:"part_of"`
		Jobs           int      `toml:"jobs"`
	} `toml:"sync"`
}

// DefaultConfig returns the configuration used without a manifest.
func DefaultConfig() Config {
	d := dialect.Default()
	return Config{
		Root:           DefaultRoot,
		Extension:      d.Extension,
		Generated:      d.GeneratedSuffixes,
		Header:         d.HeaderTokens,
		ExportTemplate: d.ExportTemplate,
		ImportToken:    d.ImportToken,
		ExportToken:    d.ExportToken,
		PartOfToken:    d.PartOfToken,
		Jobs:           1,
	}
}

// LoadManifest parses barrel.toml. Keys left out keep their defaults; a list
// that is set, even to [], replaces the default list.
func LoadManifest(path string) (*Manifest, error) {
	var file manifestFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: %w %q", path, ErrUnknownKey, undecoded[0].String())
	}
	if !meta.IsDefined("sync") {
		return nil, fmt.Errorf("%s: %w", path, ErrSyncSectionMissing)
	}

	cfg := DefaultConfig()
	sync := file.Sync
	setString := func(key string, dst *string, value string) {
		if meta.IsDefined("sync", key) {
			*dst = strings.TrimSpace(value)
		}
	}
	setList := func(key string, dst *[]string, value []string) {
		if meta.IsDefined("sync", key) {
			*dst = append([]string{}, value...)
		}
	}
	setString("root", &cfg.Root, sync.Root)
	setString("extension", &cfg.Extension, sync.Extension)
	setString("export_template", &cfg.ExportTemplate, sync.ExportTemplate)
	setString("import", &cfg.ImportToken, sync.Import)
	setString("export", &cfg.ExportToken, sync.Export)
	setString("part_of", &cfg.PartOfToken, sync.PartOf)
	setList("generated", &cfg.Generated, sync.Generated)
	setList("exclude", &cfg.Exclude, sync.Exclude)
	setList("header", &cfg.Header, sync.Header)
	if meta.IsDefined("sync", "jobs") {
		cfg.Jobs = sync.Jobs
	}

	if cfg.Root == "" {
		return nil, fmt.Errorf("%s: [sync].root must not be empty", path)
	}
	if cfg.Jobs < 0 {
		return nil, fmt.Errorf("%s: [sync].jobs must not be negative", path)
	}
	for _, pattern := range cfg.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("%s: invalid [sync].exclude pattern %q: %w", path, pattern, err)
		}
	}
	if err := cfg.Dialect().Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Manifest{Path: path, Dir: filepath.Dir(path), Config: cfg}, nil
}

// Discover finds and loads the manifest governing startDir.
func Discover(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadManifest(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// Dialect returns the directive syntax described by the configuration.
func (c Config) Dialect() dialect.Dialect {
	return dialect.Dialect{
		Extension:         c.Extension,
		GeneratedSuffixes: c.Generated,
		ImportToken:       c.ImportToken,
		ExportToken:       c.ExportToken,
		PartOfToken:       c.PartOfToken,
		HeaderTokens:      c.Header,
		ExportTemplate:    c.ExportTemplate,
	}
}

// RootDir resolves [sync].root against the manifest directory.
func (m *Manifest) RootDir() string {
	root := filepath.FromSlash(m.Config.Root)
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(m.Dir, root)
}

// DefaultManifest returns the manifest written by `barrel init`.
func DefaultManifest(root string) string {
	if root == "" {
		root = DefaultRoot
	}
	return fmt.Sprintf(`# barrel project manifest
[sync]
# directory whose tree receives aggregator files
root = %q
extension = ".dart"
# compiler-emitted companions, never exported
generated = [".g.dart"]
# directory name patterns that are not visited
exclude = []
# leading lines kept above the exports besides imports, e.g. ["library", "//"];
# by default they move below the exports
header = []
export_template = "export '{path}';"
jobs = 1
`, root)
}
