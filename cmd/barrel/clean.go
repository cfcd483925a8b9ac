package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"barrel/internal/cache"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the classification cache",
		Long:  "Remove every cached part-of classification written by --cache runs.",
		Args:  cobra.NoArgs,
		RunE:  runClean,
	}
}

func runClean(cmd *cobra.Command, _ []string) error {
	c, err := cache.Open(cacheApp, "")
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	if err := c.DropAll(); err != nil {
		return fmt.Errorf("failed to remove cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "removed classification cache")
	return nil
}
