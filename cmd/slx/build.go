package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"slx/internal/sessionindex"
)

var buildFormat string

var buildCmd = &cobra.Command{
	Use:   "build <session.jsonl>",
	Short: "Build a session index from scratch",
	Long: `Build reads the entire session log once and constructs the index:
line offsets, uuid mappings, human turn boundaries, and file edits.

The index is snapshotted so later commands can update it incrementally.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	start := time.Now()
	cfg := loadConfig()
	logger := newLogger(cfg)

	sessionFile := args[0]
	projectRoot := resolveProjectRoot(cfg)

	// Snapshots are keyed by absolute path so every command resolves to the
	// same snapshot file.
	abs, err := filepath.Abs(sessionFile)
	if err != nil {
		return err
	}

	ix, err := sessionindex.Build(abs, projectRoot)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	saveSnapshot(cfg, logger, abs, ix)
	recordSession(logger, abs, projectRoot, ix)

	resp := &StatusResponse{
		SessionFile: sessionFile,
		Status:      ix.Status(),
	}
	output, err := FormatResponse(resp, OutputFormat(buildFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)

	if buildFormat == "human" {
		fmt.Fprintf(os.Stderr, "\n(Built in %dms)\n", time.Since(start).Milliseconds())
	}
	return nil
}
