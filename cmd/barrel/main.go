package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"barrel/internal/version"
)

// errChangesPending signals a --check run that found stale aggregators.
// It carries no message: the report already listed the files.
var errChangesPending = errors.New("aggregators out of date")

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "barrel [root]",
		Short: "Keep directory aggregator files in sync",
		Long: `barrel walks a source tree bottom-up and maintains one aggregator file per
directory (dir/<dir>.dart) that re-exports every module in the directory and
the aggregators of its subdirectories. Hand-written headers and trailing
content are preserved; exports are only ever added.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSync,
	}
	rootCmd.Version = version.Version

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log per-directory decisions")
	addSyncFlags(rootCmd)

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCleanCmd())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, newRootCmd())
	stop()
	os.Exit(code)
}

// execute runs cmd and maps its error to a process exit code.
func execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errChangesPending):
		return 1
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
