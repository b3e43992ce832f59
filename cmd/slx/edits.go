package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var editsFormat string

var editsCmd = &cobra.Command{
	Use:   "edits <session.jsonl>",
	Short: "List files edited during a session",
	Long: `List every distinct file the session touched, classified as added
(created during the session) or modified (existed beforehand).`,
	Args: cobra.ExactArgs(1),
	RunE: runEdits,
}

func init() {
	editsCmd.Flags().StringVar(&editsFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(editsCmd)
}

func runEdits(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)

	sessionFile := args[0]
	projectRoot := resolveProjectRoot(cfg)

	ix, err := openIndex(cfg, logger, sessionFile, projectRoot)
	if err != nil {
		return err
	}
	recordSession(logger, sessionFile, projectRoot, ix)

	resp := &EditsResponse{
		SessionFile: sessionFile,
		FileEdits:   ix.FileEdits,
	}
	output, err := FormatResponse(resp, OutputFormat(editsFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}
