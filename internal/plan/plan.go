package plan

import (
	"path"
	"sort"

	"golang.org/x/text/unicode/norm"

	"barrel/internal/classify"
	"barrel/internal/dialect"
)

// ExportSet is an unordered set of rendered export statements.
type ExportSet map[string]struct{}

// NewExportSet returns a set holding stmts.
func NewExportSet(stmts ...string) ExportSet {
	s := make(ExportSet, len(stmts))
	for _, stmt := range stmts {
		s[stmt] = struct{}{}
	}
	return s
}

// Add inserts stmt and reports whether it was not present before.
func (s ExportSet) Add(stmt string) bool {
	if _, ok := s[stmt]; ok {
		return false
	}
	s[stmt] = struct{}{}
	return true
}

// Has reports whether stmt is a member.
func (s ExportSet) Has(stmt string) bool {
	_, ok := s[stmt]
	return ok
}

// Len returns the number of statements.
func (s ExportSet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s ExportSet) Clone() ExportSet {
	out := make(ExportSet, len(s))
	for stmt := range s {
		out[stmt] = struct{}{}
	}
	return out
}

// Sorted returns the statements in lexicographic order of their rendered text.
func (s ExportSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for stmt := range s {
		out = append(out, stmt)
	}
	sort.Strings(out)
	return out
}

// Plan computes the export statements required for dir. files are the
// classified module files of dir; subdirs names the immediate subdirectories
// whose aggregator was written in this run. An empty result means dir needs
// no aggregator.
func Plan(dir string, files []classify.SourceFile, subdirs []string, d dialect.Dialect) ExportSet {
	own := d.AggregatorName(dir)
	out := NewExportSet()
	for _, f := range files {
		if !f.Exportable() || f.Name == own {
			continue
		}
		out.Add(d.RenderExport(norm.NFC.String(f.Name)))
	}
	for _, sub := range subdirs {
		sub = norm.NFC.String(sub)
		out.Add(d.RenderExport(path.Join(sub, sub+d.Extension)))
	}
	return out
}
