package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"slx/internal/sessionindex"
	"slx/internal/snapshot"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status <session.jsonl>",
	Short: "Show index status for a session",
	Long: `Display the index status for a session log: record count, file edit
counts, and whether the index needed an incremental update or a rebuild.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)

	sessionFile := args[0]
	projectRoot := resolveProjectRoot(cfg)

	resp := &StatusResponse{SessionFile: sessionFile}

	abs, err := filepath.Abs(sessionFile)
	if err != nil {
		return err
	}

	var ix *sessionindex.SessionIndex
	if cfg.Snapshot.Enabled {
		ix, err = snapshot.Load(cfg.Snapshot.Dir, abs)
		if err != nil {
			logger.Warn("Failed to load snapshot", map[string]interface{}{
				"error": err.Error(),
			})
			ix = nil
		}
	}

	if ix != nil {
		result, err := sessionindex.Update(ix, abs, projectRoot)
		if err != nil {
			resp.Status = sessionindex.ErrorStatus(err.Error())
		} else {
			resp.Status = ix.Status()
			resp.UpdateState = result.String()
			saveSnapshot(cfg, logger, abs, ix)
			recordSession(logger, abs, projectRoot, ix)
		}
	} else {
		ix, err = sessionindex.Build(abs, projectRoot)
		if err != nil {
			resp.Status = sessionindex.ErrorStatus(err.Error())
		} else {
			resp.Status = ix.Status()
			resp.UpdateState = "built"
			saveSnapshot(cfg, logger, abs, ix)
			recordSession(logger, abs, projectRoot, ix)
		}
	}

	output, err := FormatResponse(resp, OutputFormat(statusFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}
