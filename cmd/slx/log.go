package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"slx/internal/sessionindex"
)

var (
	logFormat string
	logFrom   uint32
	logTail   int
)

var logCmd = &cobra.Command{
	Use:   "log <session.jsonl>",
	Short: "Print the records of a session log",
	Long: `Log materializes session records through the index, reading each record
at its stored byte offset instead of scanning the whole file.

Use --from to start at a given line, or --tail to show only the last N records.`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logFormat, "format", "human", "Output format (json, yaml, human)")
	logCmd.Flags().Uint32Var(&logFrom, "from", 0, "First line to print")
	logCmd.Flags().IntVar(&logTail, "tail", 0, "Print only the last N records")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)

	sessionFile := args[0]
	projectRoot := resolveProjectRoot(cfg)

	abs, err := filepath.Abs(sessionFile)
	if err != nil {
		return err
	}

	ix, err := openIndex(cfg, logger, abs, projectRoot)
	if err != nil {
		return err
	}
	recordSession(logger, abs, projectRoot, ix)

	start, count := logFrom, 0
	if logTail > 0 {
		// --tail wins over --from.
		start, count = 0, logTail
		if total := ix.TotalRecords(); uint32(logTail) < total {
			start = total - uint32(logTail)
		}
	}

	events, err := sessionindex.Records(ix, abs, start, count)
	if err != nil {
		return err
	}

	resp := &LogResponse{
		SessionFile:  sessionFile,
		TotalRecords: ix.TotalRecords(),
		Events:       events,
	}
	output, err := FormatResponse(resp, OutputFormat(logFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}
