package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"barrel/internal/project"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default barrel.toml",
		Long: `Initialize a barrel project by writing barrel.toml into [dir] (the current
directory when omitted). A missing directory is created. An existing
manifest is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
	cmd.Flags().String("root", project.DefaultRoot, "traversal root recorded in the manifest")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	root, err := cmd.Flags().GetString("root")
	if err != nil {
		return err
	}

	if st, statErr := os.Stat(target); statErr != nil {
		if !errors.Is(statErr, os.ErrNotExist) {
			return statErr
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	if _, err = os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err = os.WriteFile(manifestPath, []byte(project.DefaultManifest(root)), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized barrel project in %s\n", displayPath(target))
	fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", project.ManifestName)
	return nil
}
