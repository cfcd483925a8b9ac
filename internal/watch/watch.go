// Package watch re-runs a sync whenever module files below the traversal
// root change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"barrel/internal/dialect"
	"barrel/internal/driver"
)

// DefaultDebounce is the quiet period awaited after the last change.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a watch session.
type Options struct {
	Dialect  dialect.Dialect
	Exclude  []string
	Debounce time.Duration
	Logger   *log.Logger
}

// SyncFunc synchronizes a freshly scanned tree.
type SyncFunc func(ctx context.Context, tree *driver.Tree) error

// Run scans and syncs root, then repeats after every batch of relevant
// changes until ctx is done. A failed sync is logged and watching goes on;
// losing the root ends the session with driver.ErrRootNotFound.
func Run(ctx context.Context, root string, opts Options, sync SyncFunc) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	resync := func() error {
		tree, err := driver.Scan(ctx, root, driver.SyncOptions{Dialect: opts.Dialect, Exclude: opts.Exclude})
		if err != nil {
			return err
		}
		// Directories that vanished drop out of the watch list on their own.
		for _, dir := range tree.Dirs() {
			if err := w.Add(dir); err != nil {
				logger.Warn("cannot watch directory", "dir", dir, "err", err)
			}
		}
		return sync(ctx, tree)
	}
	if err := resync(); err != nil {
		return err
	}
	logger.Info("watching for changes", "root", root)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !opts.relevant(ev) {
				continue
			}
			logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		case <-fire:
			fire = nil
			err := resync()
			switch {
			case err == nil:
			case errors.Is(err, driver.ErrRootNotFound):
				return err
			case ctx.Err() != nil:
				return nil
			default:
				logger.Error("sync failed", "err", err)
			}
		}
	}
}

// relevant filters out events that cannot change any aggregator, notably the
// writes of the sync itself.
func (o Options) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	d := o.Dialect
	if !d.IsModule(name) {
		// may be a directory entering or leaving the tree
		return !ev.Has(fsnotify.Write)
	}
	if d.IsGenerated(name) {
		return false
	}
	if name == d.AggregatorName(filepath.Dir(ev.Name)) {
		return ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	}
	return true
}
