package main

import (
	"github.com/spf13/cobra"

	"slx/internal/version"
)

var (
	// projectRootFlag is the CLI --project-root flag value
	projectRootFlag string
)

var rootCmd = &cobra.Command{
	Use:   "slx",
	Short: "SLX - Session Log Explorer",
	Long: `SLX indexes AI-assistant session logs (JSONL, one record per line) and
answers questions about them: which files a session edited, whether a file was
added or modified, and which conversation turn caused a given file edit.

Indexes are built once per session and updated incrementally as the log grows.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("SLX version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&projectRootFlag, "project-root", "",
		"Project root used to relativize edited file paths (default: config projectRoot)")
}
