package classify

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"barrel/internal/dialect"
)

// SourceFile is the classification of one module file.
type SourceFile struct {
	Path         string
	Name         string
	IsAggregator bool
	IsSubPart    bool
	IsGenerated  bool
}

// Exportable reports whether the file may appear in its directory's aggregator.
func (f SourceFile) Exportable() bool {
	return !f.IsGenerated && !f.IsAggregator && !f.IsSubPart
}

// ReadError reports a module file that could not be read during classification.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Cache remembers part-of scan results between runs.
// Implementations must be safe for concurrent use.
type Cache interface {
	Lookup(path string, info fs.FileInfo) (subPart, ok bool)
	Store(path string, info fs.FileInfo, subPart bool)
}

// Classifier classifies module files for one dialect.
type Classifier struct {
	Dialect dialect.Dialect
	// Cache is optional; when nil every file is read on every call.
	Cache Cache
}

// New returns a Classifier without a cache.
func New(d dialect.Dialect) *Classifier {
	return &Classifier{Dialect: d}
}

// Classify inspects the file at path. Generated files are never opened.
func (c *Classifier) Classify(path string) (SourceFile, error) {
	name := filepath.Base(path)
	dirName := filepath.Base(filepath.Dir(path))
	sf := SourceFile{
		Path:         path,
		Name:         name,
		IsAggregator: c.Dialect.Stem(name) == dirName,
		IsGenerated:  c.Dialect.IsGenerated(name),
	}
	if sf.IsGenerated {
		return sf, nil
	}

	var info fs.FileInfo
	if c.Cache != nil {
		st, err := os.Stat(path)
		if err != nil {
			return SourceFile{}, &ReadError{Path: path, Err: err}
		}
		if subPart, ok := c.Cache.Lookup(path, st); ok {
			sf.IsSubPart = subPart
			return sf, nil
		}
		info = st
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return SourceFile{}, &ReadError{Path: path, Err: err}
	}
	sf.IsSubPart = HasPartOf(content, c.Dialect)
	if c.Cache != nil {
		c.Cache.Store(path, info, sf.IsSubPart)
	}
	return sf, nil
}

// HasPartOf scans every line of content for the part-of directive.
func HasPartOf(content []byte, d dialect.Dialect) bool {
	content = bytes.TrimPrefix(content, utf8BOM)
	for len(content) > 0 {
		line := content
		if i := bytes.IndexByte(content, '\n'); i >= 0 {
			line, content = content[:i], content[i+1:]
		} else {
			content = nil
		}
		if d.IsPartOf(string(line)) {
			return true
		}
	}
	return false
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}
