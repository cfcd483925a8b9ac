package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"barrel/internal/version"
)

type versionOptions struct {
	format   string
	showHash bool
	showDate bool
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show barrel build information",
		RunE:  runVersion,
	}
	cmd.Flags().Bool("hash", false, "include git commit hash")
	cmd.Flags().Bool("date", false, "include build timestamp")
	cmd.Flags().Bool("full", false, "show all recorded build metadata")
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	hash, _ := cmd.Flags().GetBool("hash")
	date, _ := cmd.Flags().GetBool("date")
	full, _ := cmd.Flags().GetBool("full")
	colorValue, _ := cmd.Flags().GetString("color")
	mode, err := readUIMode("color", colorValue)
	if err != nil {
		return err
	}
	applyColorMode(mode)

	opts := versionOptions{
		format:   strings.ToLower(format),
		showHash: hash || full,
		showDate: date || full,
	}
	switch opts.format {
	case "pretty":
		renderVersionPretty(cmd.OutOrStdout(), opts)
		return nil
	case "json":
		return renderVersionJSON(cmd.OutOrStdout(), opts)
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func renderVersionPretty(out io.Writer, opts versionOptions) {
	fmt.Fprintf(out, "barrel %s\n", version.Styled())
	if opts.showHash {
		fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(version.GitCommit))
	}
	if opts.showDate {
		fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(version.BuildDate))
	}
}

func renderVersionJSON(out io.Writer, opts versionOptions) error {
	payload := versionPayload{Tool: "barrel", Version: strings.TrimSpace(version.Version)}
	if opts.showHash {
		payload.GitCommit = valueOrUnknown(version.GitCommit)
	}
	if opts.showDate {
		payload.BuildDate = valueOrUnknown(version.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
