package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	slxerrors "slx/internal/errors"
	"slx/internal/sessionindex"
)

var contextFormat string

var contextCmd = &cobra.Command{
	Use:   "context <session.jsonl> <edit-line>",
	Short: "Show the conversation context that caused a file edit",
	Long: `Context walks the parent chain backwards from a file edit until it
reaches the human turn that triggered it, and prints every record in between.

Edit lines for a file can be found via 'slx edits --format json'.`,
	Args: cobra.ExactArgs(2),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().StringVar(&contextFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)

	sessionFile := args[0]
	editLine, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return slxerrors.New(slxerrors.ParseFailed,
			fmt.Sprintf("invalid edit line %q", args[1]), err)
	}
	projectRoot := resolveProjectRoot(cfg)

	abs, err := filepath.Abs(sessionFile)
	if err != nil {
		return err
	}

	ix, err := openIndex(cfg, logger, abs, projectRoot)
	if err != nil {
		return err
	}

	ec, err := sessionindex.GetEditContext(ix, abs, uint32(editLine))
	if err != nil {
		return err
	}

	resp := &ContextResponse{
		SessionFile: sessionFile,
		Context:     ec,
	}
	output, err := FormatResponse(resp, OutputFormat(contextFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}
