package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"barrel/internal/cache"
	"barrel/internal/driver"
	"barrel/internal/observ"
	"barrel/internal/project"
)

const cacheApp = "barrel"

// rootMissingError is the user-facing form of driver.ErrRootNotFound.
type rootMissingError struct {
	path string
}

func (e rootMissingError) Error() string {
	return fmt.Sprintf("The directory '%s' does not exist.", e.path)
}

func (e rootMissingError) Unwrap() error { return driver.ErrRootNotFound }

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("check", false, "do not write; list aggregators that would change and exit 1 if any")
	cmd.Flags().String("format", "text", "report format (text|json)")
	cmd.Flags().Int("jobs", 0, "concurrent file classifications per directory (0=from barrel.toml)")
	cmd.Flags().Bool("cache", false, "reuse part-of classifications from the on-disk cache")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().Bool("watch", false, "keep running and re-sync whenever module files change")
}

type syncFlags struct {
	check   bool
	format  string
	jobs    int
	cache   bool
	watch   bool
	ui      uiMode
	color   uiMode
	quiet   bool
	timings bool
	verbose bool
}

func readSyncFlags(cmd *cobra.Command) (syncFlags, error) {
	var (
		f   syncFlags
		err error
	)
	if f.check, err = cmd.Flags().GetBool("check"); err != nil {
		return f, err
	}
	if f.format, err = cmd.Flags().GetString("format"); err != nil {
		return f, err
	}
	f.format = strings.ToLower(strings.TrimSpace(f.format))
	if f.format != "text" && f.format != "json" {
		return f, fmt.Errorf("unsupported format %q (must be text or json)", f.format)
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, err
	}
	if f.jobs < 0 {
		return f, fmt.Errorf("--jobs must not be negative")
	}
	if f.cache, err = cmd.Flags().GetBool("cache"); err != nil {
		return f, err
	}
	if f.watch, err = cmd.Flags().GetBool("watch"); err != nil {
		return f, err
	}
	if f.watch && (f.check || f.format != "text") {
		return f, fmt.Errorf("--watch cannot be combined with --check or --format json")
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return f, err
	}
	if f.ui, err = readUIMode("ui", uiValue); err != nil {
		return f, err
	}
	colorValue, err := cmd.Flags().GetString("color")
	if err != nil {
		return f, err
	}
	if f.color, err = readUIMode("color", colorValue); err != nil {
		return f, err
	}
	if f.quiet, err = cmd.Flags().GetBool("quiet"); err != nil {
		return f, err
	}
	if f.timings, err = cmd.Flags().GetBool("timings"); err != nil {
		return f, err
	}
	if f.verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
		return f, err
	}
	return f, nil
}

func newLogger(out io.Writer, flags syncFlags) *log.Logger {
	logger := log.NewWithOptions(out, log.Options{Prefix: "barrel"})
	switch {
	case flags.verbose:
		logger.SetLevel(log.DebugLevel)
	case flags.quiet:
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

// resolveRoot picks the traversal root: the argument, else [sync].root of the
// nearest barrel.toml, else lib/src. A relative argument is taken relative to
// the working directory; the returned display form is what the user typed.
func resolveRoot(args []string, manifest *project.Manifest) (root, display string) {
	switch {
	case len(args) > 0:
		return args[0], args[0]
	case manifest != nil:
		return manifest.RootDir(), manifest.Config.Root
	default:
		return project.DefaultRoot, project.DefaultRoot
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	flags, err := readSyncFlags(cmd)
	if err != nil {
		return err
	}
	applyColorMode(flags.color)
	logger := newLogger(cmd.ErrOrStderr(), flags)

	manifest, found, err := project.Discover(".")
	if err != nil {
		return err
	}
	cfg := project.DefaultConfig()
	if found {
		cfg = manifest.Config
		logger.Debug("using manifest", "path", manifest.Path)
	}
	root, display := resolveRoot(args, manifest)

	var timer *observ.Timer
	if flags.timings {
		timer = observ.NewTimer()
	}
	jobs := cfg.Jobs
	if flags.jobs > 0 {
		jobs = flags.jobs
	}
	opts := driver.SyncOptions{
		Dialect: cfg.Dialect(),
		Exclude: cfg.Exclude,
		Jobs:    jobs,
		Check:   flags.check,
		Logger:  logger,
		Timer:   timer,
	}

	ctx := cmd.Context()
	tree, err := driver.Scan(ctx, root, opts)
	if err != nil {
		if errors.Is(err, driver.ErrRootNotFound) {
			return rootMissingError{path: display}
		}
		return err
	}

	var diskCache *cache.DiskCache
	if flags.cache {
		diskCache, err = cache.Open(cacheApp, tree.Root())
		if err != nil {
			logger.Warn("cache disabled", "err", err)
		} else {
			opts.Cache = diskCache
		}
	}

	if flags.watch {
		err = runWatch(ctx, cmd.OutOrStdout(), tree.Root(), opts, diskCache, flags.quiet)
		if errors.Is(err, driver.ErrRootNotFound) {
			return rootMissingError{path: display}
		}
		return err
	}

	var report *driver.Report
	if flags.format == "text" && !flags.quiet && shouldUseTUI(flags.ui) {
		report, err = runSyncWithUI(ctx, "Syncing aggregators", tree, opts)
	} else {
		report, err = tree.Sync(ctx, opts)
	}

	if diskCache != nil {
		hits, misses := diskCache.Stats()
		logger.Debug("classification cache", "hits", hits, "misses", misses)
		if saveErr := diskCache.Save(); saveErr != nil {
			logger.Warn("failed to save cache", "err", saveErr)
		}
	}
	if flags.timings {
		printTimings(cmd.ErrOrStderr(), timer)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.format == "json" {
		if encErr := writeJSONReport(out, report); encErr != nil {
			return encErr
		}
	} else {
		writeTextReport(out, report, flags.quiet)
	}
	if flags.check && len(report.Changed()) > 0 {
		return errChangesPending
	}
	return nil
}

func writeTextReport(out io.Writer, report *driver.Report, quiet bool) {
	if report.Check {
		changed := report.Changed()
		for _, res := range changed {
			fmt.Fprintf(out, "%s %s\n", color.YellowString("Would update"), displayPath(res.Aggregator))
		}
		if len(changed) == 0 && !quiet {
			fmt.Fprintln(out, "All aggregators are up to date.")
		}
		return
	}
	updated := report.Updated()
	for _, res := range updated {
		fmt.Fprintf(out, "%s %s with new exports.\n", color.GreenString("Updated"), displayPath(res.Aggregator))
	}
	if len(updated) == 0 && !quiet {
		fmt.Fprintln(out, "No updates were made.")
	}
}

type jsonDir struct {
	Dir        string   `json:"dir"`
	Aggregator string   `json:"aggregator,omitempty"`
	Status     string   `json:"status"`
	Exports    int      `json:"exports"`
	Added      []string `json:"added,omitempty"`
	Created    bool     `json:"created,omitempty"`
	Changed    bool     `json:"changed,omitempty"`
	Anomaly    bool     `json:"anomaly,omitempty"`
}

type jsonReport struct {
	Root    string    `json:"root"`
	Check   bool      `json:"check"`
	Updated []string  `json:"updated"`
	Changed []string  `json:"changed"`
	Dirs    []jsonDir `json:"dirs"`
}

func writeJSONReport(out io.Writer, report *driver.Report) error {
	payload := jsonReport{
		Root:    report.Root,
		Check:   report.Check,
		Updated: []string{},
		Changed: []string{},
		Dirs:    make([]jsonDir, 0, len(report.Dirs)),
	}
	for _, res := range report.Updated() {
		payload.Updated = append(payload.Updated, res.Aggregator)
	}
	for _, res := range report.Changed() {
		payload.Changed = append(payload.Changed, res.Aggregator)
	}
	for _, res := range report.Dirs {
		entry := jsonDir{
			Dir:     res.Dir,
			Status:  string(res.Status),
			Exports: res.Exports,
			Added:   res.Added,
			Created: res.Created,
			Changed: res.Changed,
			Anomaly: res.Anomaly,
		}
		if res.Written() {
			entry.Aggregator = res.Aggregator
		}
		payload.Dirs = append(payload.Dirs, entry)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// displayPath shortens path relative to the working directory when it lies
// below it.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || !filepath.IsLocal(rel) {
		return path
	}
	return filepath.ToSlash(rel)
}
