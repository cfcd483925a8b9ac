package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"barrel/internal/classify"
	"barrel/internal/dialect"
	"barrel/internal/merge"
	"barrel/internal/observ"
	"barrel/internal/plan"
)

// ErrRootNotFound indicates that the traversal root is missing or not a directory.
var ErrRootNotFound = errors.New("root directory does not exist")

// SyncOptions configures a sync run.
type SyncOptions struct {
	Dialect dialect.Dialect
	// Exclude lists directory name patterns (filepath.Match) that are not visited.
	Exclude []string
	// Jobs bounds concurrent classification within one directory; <= 0 uses GOMAXPROCS.
	Jobs int
	// Check computes every aggregator without writing any file.
	Check    bool
	Cache    classify.Cache
	Progress ProgressSink
	Logger   *log.Logger
	Timer    *observ.Timer
}

// DirResult is the outcome of syncing one directory. The result of each
// child is returned to its parent, which plans its own exports from it.
type DirResult struct {
	Dir        string
	Aggregator string
	Status     Status
	// Exports is the size of the export block after the merge.
	Exports int
	Added   []string
	Created bool
	Changed bool
	Anomaly bool
}

// Written reports whether the directory produced an aggregator in this run
// (in check mode: would produce).
func (r DirResult) Written() bool { return r.Status == StatusWritten }

// Updated reports whether the aggregator was created or its export set grew.
func (r DirResult) Updated() bool {
	return r.Written() && (r.Created || len(r.Added) > 0)
}

// Report lists per-directory results in the order they were synced
// (children before parents, the root last).
type Report struct {
	Root  string
	Check bool
	Dirs  []DirResult
}

// Updated returns the results whose aggregator was created or grew.
func (r *Report) Updated() []DirResult {
	var out []DirResult
	for _, res := range r.Dirs {
		if res.Updated() {
			out = append(out, res)
		}
	}
	return out
}

// Changed returns the results whose aggregator bytes differ from the previous content.
func (r *Report) Changed() []DirResult {
	var out []DirResult
	for _, res := range r.Dirs {
		if res.Written() && res.Changed {
			out = append(out, res)
		}
	}
	return out
}

// Tree is a scanned directory tree ready to be synced.
type Tree struct {
	root *dirNode
}

// Root returns the absolute traversal root.
func (t *Tree) Root() string { return t.root.path }

// Dirs lists the directories in sync order.
func (t *Tree) Dirs() []string { return t.root.postOrder() }

// Scan validates root and lists its directory tree without reading files.
func Scan(ctx context.Context, root string, opts SyncOptions) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, abs)
	}
	idx := opts.Timer.Begin("scan")
	node, err := scanTree(ctx, abs, opts.Dialect, opts.Exclude)
	if err != nil {
		opts.Timer.End(idx, "failed")
		return nil, err
	}
	tree := &Tree{root: node}
	opts.Timer.End(idx, fmt.Sprintf("%d dirs", len(tree.Dirs())))
	return tree, nil
}

// Sync scans root and synchronizes every aggregator file below it.
func Sync(ctx context.Context, root string, opts SyncOptions) (*Report, error) {
	tree, err := Scan(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	return tree.Sync(ctx, opts)
}

// Sync walks the tree in post-order. Each directory is planned and merged
// after all of its subdirectories; the traversal root is finalized last. On
// error the partial report is returned; aggregators already written stay.
func (t *Tree) Sync(ctx context.Context, opts SyncOptions) (*Report, error) {
	if err := opts.Dialect.Validate(); err != nil {
		return nil, err
	}
	s := newSyncer(opts)
	idx := opts.Timer.Begin("sync")
	subdirs, err := s.visitChildren(ctx, t.root)
	if err == nil {
		_, err = s.aggregate(ctx, t.root, subdirs)
	}
	opts.Timer.End(idx, fmt.Sprintf("%d written", s.written))
	return &Report{Root: t.root.path, Check: opts.Check, Dirs: s.results}, err
}

type syncer struct {
	opts       SyncOptions
	classifier *classify.Classifier
	logger     *log.Logger
	jobs       int
	results    []DirResult
	written    int
}

func newSyncer(opts SyncOptions) *syncer {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &syncer{
		opts:       opts,
		classifier: &classify.Classifier{Dialect: opts.Dialect, Cache: opts.Cache},
		logger:     logger,
		jobs:       jobs,
	}
}

func (s *syncer) visit(ctx context.Context, n *dirNode) (DirResult, error) {
	subdirs, err := s.visitChildren(ctx, n)
	if err != nil {
		return DirResult{}, err
	}
	return s.aggregate(ctx, n, subdirs)
}

// visitChildren syncs every subdirectory of n and returns the names of those
// that produced an aggregator.
func (s *syncer) visitChildren(ctx context.Context, n *dirNode) ([]string, error) {
	var written []string
	for _, child := range n.children {
		res, err := s.visit(ctx, child)
		if err != nil {
			return nil, err
		}
		if res.Written() {
			written = append(written, filepath.Base(child.path))
		}
	}
	return written, nil
}

func (s *syncer) aggregate(ctx context.Context, n *dirNode, subdirs []string) (DirResult, error) {
	if err := ctx.Err(); err != nil {
		return DirResult{}, err
	}
	start := time.Now()
	d := s.opts.Dialect
	res := DirResult{Dir: n.path, Aggregator: d.AggregatorPath(n.path), Status: StatusPending}
	s.emit(Event{Dir: n.path, Status: StatusWorking})

	files, err := s.classifyDir(ctx, n)
	if err != nil {
		return s.fail(res, err, start)
	}
	exports := plan.Plan(n.path, files, subdirs, d)
	res.Status = StatusPlanned
	s.emit(Event{Dir: n.path, Status: StatusPlanned, Elapsed: time.Since(start)})
	if exports.Len() == 0 {
		res.Status = StatusSkipped
		s.logger.Debug("nothing to export", "dir", n.path)
		return s.finish(res, start), nil
	}

	existing, present, err := readAggregator(res.Aggregator)
	if err != nil {
		return s.fail(res, err, start)
	}
	merged := merge.Merge(existing, present, exports, d)
	if merged.Anomaly {
		s.logger.Debug("aggregator is not text, header detection skipped", "path", res.Aggregator)
	}
	if !s.opts.Check {
		if err := writeAggregator(res.Aggregator, merged.Content); err != nil {
			return s.fail(res, err, start)
		}
	}
	res.Status = StatusWritten
	res.Exports = len(merged.Exports)
	res.Added = merged.Added
	res.Created = merged.Created
	res.Changed = merged.Changed
	res.Anomaly = merged.Anomaly
	s.written++
	s.logger.Debug("aggregated", "path", res.Aggregator, "exports", res.Exports, "added", len(res.Added))
	return s.finish(res, start), nil
}

// classifyDir classifies the module files of n on at most s.jobs goroutines.
// Results keep the scan order.
func (s *syncer) classifyDir(ctx context.Context, n *dirNode) ([]classify.SourceFile, error) {
	if len(n.files) == 0 {
		return nil, nil
	}
	out := make([]classify.SourceFile, len(n.files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(s.jobs, len(n.files)))
	for i, name := range n.files {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sf, err := s.classifier.Classify(filepath.Join(n.path, name))
			if err != nil {
				return err
			}
			out[i] = sf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *syncer) finish(res DirResult, start time.Time) DirResult {
	s.results = append(s.results, res)
	s.emit(Event{Dir: res.Dir, Status: res.Status, Elapsed: time.Since(start)})
	return res
}

func (s *syncer) fail(res DirResult, err error, start time.Time) (DirResult, error) {
	res.Status = StatusError
	s.results = append(s.results, res)
	s.emit(Event{Dir: res.Dir, Status: StatusError, Err: err, Elapsed: time.Since(start)})
	return res, err
}

func (s *syncer) emit(evt Event) {
	if s.opts.Progress != nil {
		s.opts.Progress.OnEvent(evt)
	}
}

func readAggregator(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &classify.ReadError{Path: path, Err: err}
	}
	return data, true, nil
}

func writeAggregator(path string, content []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, content, mode.Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
