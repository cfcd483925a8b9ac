package merge

import (
	"bytes"
	"strings"

	"barrel/internal/dialect"
	"barrel/internal/plan"
)

// Result is the outcome of merging required exports into an aggregator file.
type Result struct {
	Content []byte
	// Exports is the sorted union written to the export block.
	Exports []string
	// Added lists required statements that were not present before, sorted.
	Added []string
	// Created is set when there was no previous file.
	Created bool
	// Changed is set when Content differs from the previous bytes.
	Changed bool
	Anomaly bool
}

// Grew reports whether the export set gained statements.
func (r Result) Grew() bool { return r.Created || len(r.Added) > 0 }

// Merge computes the new content of an aggregator file. existing is ignored
// when present is false.
func Merge(existing []byte, present bool, required plan.ExportSet, d dialect.Dialect) Result {
	doc := Document{Exports: plan.NewExportSet()}
	if present {
		doc = Split(existing, d)
	}

	union := doc.Exports.Clone()
	var added []string
	for _, stmt := range required.Sorted() {
		if union.Add(stmt) {
			added = append(added, stmt)
		}
	}
	exports := union.Sorted()
	content := doc.Render(exports)
	return Result{
		Content: content,
		Exports: exports,
		Added:   added,
		Created: !present,
		Changed: !present || !bytes.Equal(existing, content),
		Anomaly: doc.Anomaly,
	}
}

// Render writes the document with the given export statements.
func (doc Document) Render(exports []string) []byte {
	var b bytes.Buffer
	if doc.BOM {
		b.Write(utf8BOM)
	}
	for _, line := range doc.Header {
		b.WriteString(line)
	}
	if n := len(doc.Header); n > 0 {
		if !strings.HasSuffix(doc.Header[n-1], "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	for _, stmt := range exports {
		b.WriteString(stmt)
		b.WriteByte('\n')
	}
	if len(doc.Trailer) > 0 {
		b.WriteByte('\n')
		for _, line := range trimLeadingBlank(doc.Trailer) {
			b.WriteString(line)
		}
	}
	return b.Bytes()
}

func trimLeadingBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return lines
}
