package merge

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"barrel/internal/dialect"
	"barrel/internal/plan"
)

// Region identifies the part of an aggregator file a line belongs to.
type Region uint8

const (
	RegionHeader Region = iota
	RegionExports
	RegionTrailer
)

func (r Region) String() string {
	switch r {
	case RegionHeader:
		return "header"
	case RegionExports:
		return "exports"
	case RegionTrailer:
		return "trailer"
	default:
		return "unknown"
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is an aggregator file split into its regions. Header and Trailer
// keep their line terminators.
type Document struct {
	BOM     bool
	Header  []string
	Exports plan.ExportSet
	Trailer []string
	// Anomaly is set when the content was not text; no header is kept then.
	Anomaly bool
}

// Split classifies the lines of an existing aggregator file.
func Split(content []byte, d dialect.Dialect) Document {
	doc := Document{Exports: plan.NewExportSet()}
	if bytes.HasPrefix(content, utf8BOM) {
		doc.BOM = true
		content = content[len(utf8BOM):]
	}
	lc := lineClassifier{d: d, doc: &doc}
	if !utf8.Valid(content) || bytes.IndexByte(content, 0) >= 0 {
		// Not text: no header is recognized and every non-export line is trailer.
		doc.Anomaly = true
		lc.state = RegionExports
	}
	for _, line := range splitLines(string(content)) {
		lc.feed(line)
	}
	return doc
}

// lineClassifier walks lines in order: header -> exports -> trailer.
// Blank lines inside the header are kept only when another header line
// follows; blank lines ending the header are dropped because Render writes
// the separator itself. Every other non-export line after the header,
// blank ones included, belongs to the trailer. Export directives seen
// after the header always join the export set.
type lineClassifier struct {
	d       dialect.Dialect
	doc     *Document
	state   Region
	pending []string
}

func (lc *lineClassifier) feed(line string) {
	trimmed := strings.TrimSpace(line)
	if lc.state == RegionHeader {
		switch {
		case trimmed == "":
			lc.pending = append(lc.pending, line)
			return
		case lc.d.IsHeader(trimmed):
			if len(lc.doc.Header) > 0 {
				lc.doc.Header = append(lc.doc.Header, lc.pending...)
			}
			lc.pending = lc.pending[:0]
			lc.doc.Header = append(lc.doc.Header, line)
			return
		}
		lc.pending = nil
		lc.state = RegionExports
	}
	if lc.d.IsExport(trimmed) {
		lc.doc.Exports.Add(trimmed)
		return
	}
	if lc.state == RegionExports && trimmed != "" {
		lc.state = RegionTrailer
	}
	lc.doc.Trailer = append(lc.doc.Trailer, line)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
