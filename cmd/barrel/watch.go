package main

import (
	"context"
	"fmt"
	"io"

	"barrel/internal/cache"
	"barrel/internal/driver"
	"barrel/internal/watch"
)

// runWatch keeps root in sync until ctx is canceled, printing the usual
// report lines after every round that added exports.
func runWatch(ctx context.Context, out io.Writer, root string, opts driver.SyncOptions, diskCache *cache.DiskCache, quiet bool) error {
	opts.Timer = nil
	wopts := watch.Options{Dialect: opts.Dialect, Exclude: opts.Exclude, Logger: opts.Logger}
	if !quiet {
		fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", displayPath(root))
	}
	return watch.Run(ctx, root, wopts, func(ctx context.Context, tree *driver.Tree) error {
		report, err := tree.Sync(ctx, opts)
		if diskCache != nil {
			if saveErr := diskCache.Save(); saveErr != nil {
				opts.Logger.Warn("failed to save cache", "err", saveErr)
			}
		}
		if err != nil {
			return err
		}
		writeTextReport(out, report, true)
		return nil
	})
}
