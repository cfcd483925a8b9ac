package dialect

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PathPlaceholder is replaced with the relative module path when rendering an export.
const PathPlaceholder = "{path}"

// Dialect captures the file naming and directive tokens of a module language.
type Dialect struct {
	// Extension of module files, including the leading dot.
	Extension string
	// GeneratedSuffixes mark compiler-emitted companion files (".g.dart").
	GeneratedSuffixes []string
	ImportToken       string
	ExportToken       string
	PartOfToken       string
	// HeaderTokens are extra directives kept in the leading header block
	// together with imports, e.g. "library" or "//". None by default: such
	// lines belong to the trailer.
	HeaderTokens []string
	// ExportTemplate renders one export statement; it must contain PathPlaceholder.
	ExportTemplate string
}

var (
	// ErrInvalidExtension indicates an extension without a leading dot.
	ErrInvalidExtension = errors.New("extension must start with '.' and name a suffix")
	// ErrMissingToken indicates an empty directive token.
	ErrMissingToken = errors.New("directive token must not be empty")
	// ErrInvalidTemplate indicates an export template that cannot render an export directive.
	ErrInvalidTemplate = errors.New("export template must contain " + PathPlaceholder + " and start with the export token")
)

// Default returns the Dart dialect.
func Default() Dialect {
	return Dialect{
		Extension:         ".dart",
		GeneratedSuffixes: []string{".g.dart"},
		ImportToken:       "import",
		ExportToken:       "export",
		PartOfToken:       "part of",
		ExportTemplate:    "export '" + PathPlaceholder + "';",
	}
}

// Validate reports configuration mistakes that would make output unstable.
func (d Dialect) Validate() error {
	if len(d.Extension) < 2 || d.Extension[0] != '.' {
		return fmt.Errorf("%w: %q", ErrInvalidExtension, d.Extension)
	}
	for name, tok := range map[string]string{
		"import":  d.ImportToken,
		"export":  d.ExportToken,
		"part-of": d.PartOfToken,
	} {
		if strings.TrimSpace(tok) == "" {
			return fmt.Errorf("%s: %w", name, ErrMissingToken)
		}
	}
	if !strings.Contains(d.ExportTemplate, PathPlaceholder) {
		return fmt.Errorf("%w: %q", ErrInvalidTemplate, d.ExportTemplate)
	}
	if !d.IsExport(d.RenderExport("x" + d.Extension)) {
		return fmt.Errorf("%w: %q", ErrInvalidTemplate, d.ExportTemplate)
	}
	return nil
}

// IsModule reports whether name has the module extension.
func (d Dialect) IsModule(name string) bool {
	return len(name) > len(d.Extension) && strings.HasSuffix(name, d.Extension)
}

// IsGenerated reports whether name matches a generated-artifact suffix.
func (d Dialect) IsGenerated(name string) bool {
	for _, suffix := range d.GeneratedSuffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Stem returns name without the module extension.
func (d Dialect) Stem(name string) string {
	return strings.TrimSuffix(name, d.Extension)
}

// AggregatorName returns the aggregator file name for dir: "<dirname><ext>".
func (d Dialect) AggregatorName(dir string) string {
	return filepath.Base(filepath.Clean(dir)) + d.Extension
}

// AggregatorPath returns the full path of the aggregator file inside dir.
func (d Dialect) AggregatorPath(dir string) string {
	return filepath.Join(dir, d.AggregatorName(dir))
}

// RenderExport renders the export statement for a slash-separated relative path.
func (d Dialect) RenderExport(rel string) string {
	return strings.ReplaceAll(d.ExportTemplate, PathPlaceholder, rel)
}

// IsImport reports whether line is an import directive.
func (d Dialect) IsImport(line string) bool {
	return HasDirective(strings.TrimSpace(line), d.ImportToken)
}

// IsExport reports whether line is an export directive.
func (d Dialect) IsExport(line string) bool {
	return HasDirective(strings.TrimSpace(line), d.ExportToken)
}

// IsPartOf reports whether line is a part-of directive.
func (d Dialect) IsPartOf(line string) bool {
	return HasDirective(strings.TrimSpace(line), d.PartOfToken)
}

// IsHeader reports whether line belongs in the leading header block.
func (d Dialect) IsHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if HasDirective(trimmed, d.ImportToken) {
		return true
	}
	for _, tok := range d.HeaderTokens {
		if HasDirective(trimmed, tok) {
			return true
		}
	}
	return false
}

// HasDirective reports whether the trimmed line starts with token used as a
// directive. Tokens ending in a word character must be followed by a
// separator so that identifiers such as "exported" do not match "export".
func HasDirective(trimmed, token string) bool {
	if token == "" || !strings.HasPrefix(trimmed, token) {
		return false
	}
	rest := trimmed[len(token):]
	if rest == "" {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(token)
	if !isWordRune(last) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(rest)
	switch next {
	case ' ', '\t', '\'', '"', ';':
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
