package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slx/internal/registry"
)

var sessionsFormat string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List known sessions",
	Long:  `List every session that has been indexed, most recently indexed first.`,
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)

	reg, err := registry.Open(registryDir(), logger)
	if err != nil {
		return err
	}
	defer reg.Close() //nolint:errcheck // Best effort cleanup

	sessions, err := reg.List()
	if err != nil {
		return err
	}

	resp := &SessionsResponse{Sessions: sessions}
	output, err := FormatResponse(resp, OutputFormat(sessionsFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}
