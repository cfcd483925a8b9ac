package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"barrel/internal/dialect"
)

// dirNode is one directory of the scanned tree. files holds the module file
// names (generated ones included, sorted); content is not read while scanning.
type dirNode struct {
	path     string
	files    []string
	children []*dirNode
}

// scanTree lists root recursively, skipping hidden directories and
// directories whose name matches one of the exclude patterns.
func scanTree(ctx context.Context, root string, d dialect.Dialect, exclude []string) (*dirNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", root, err)
	}
	node := &dirNode{path: root}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if skipDir(name, exclude) {
				continue
			}
			child, err := scanTree(ctx, filepath.Join(root, name), d, exclude)
			if err != nil {
				return nil, err
			}
			node.children = append(node.children, child)
			continue
		}
		if d.IsModule(name) {
			node.files = append(node.files, name)
		}
	}
	return node, nil
}

func skipDir(name string, exclude []string) bool {
	if len(name) > 1 && strings.HasPrefix(name, ".") {
		return true
	}
	for _, pattern := range exclude {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// postOrder lists directories children-first, in the order they are synced.
func (n *dirNode) postOrder() []string {
	var out []string
	var walk func(*dirNode)
	walk = func(n *dirNode) {
		for _, child := range n.children {
			walk(child)
		}
		out = append(out, n.path)
	}
	walk(n)
	return out
}
