package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"slx/internal/sessionindex"
	"slx/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <session.jsonl>",
	Short: "Watch a session log and keep its index up to date",
	Long: `Watch builds the session index, then keeps it current by applying
incremental updates whenever the log file changes. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)

	if !cfg.Watcher.Enabled {
		return fmt.Errorf("watcher is disabled in config")
	}

	sessionFile, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	projectRoot := resolveProjectRoot(cfg)

	ix, err := openIndex(cfg, logger, sessionFile, projectRoot)
	if err != nil {
		return err
	}
	recordSession(logger, sessionFile, projectRoot, ix)
	logger.Info("Index ready", map[string]interface{}{
		"totalRecords": ix.TotalRecords(),
		"fileEdits":    len(ix.FileEdits),
	})

	// The index is owned by this loop; updates arrive debounced on the
	// watcher goroutine and are serialized through the channel below.
	changes := make(chan string, 1)
	w, err := watcher.New(watcher.Config{
		Enabled:    true,
		DebounceMs: cfg.Watcher.DebounceMs,
	}, logger, func(path string) {
		select {
		case changes <- path:
		default: // an update is already pending
		}
	})
	if err != nil {
		return err
	}
	defer w.Close() //nolint:errcheck // Best effort cleanup

	if err := w.Watch(sessionFile); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-changes:
			result, err := sessionindex.Update(ix, sessionFile, projectRoot)
			if err != nil {
				// A failed incremental update may be partially applied;
				// rebuild from scratch on the next pass.
				logger.Error("Update failed, rebuilding", map[string]interface{}{
					"error": err.Error(),
				})
				fresh, buildErr := sessionindex.Build(sessionFile, projectRoot)
				if buildErr != nil {
					logger.Error("Rebuild failed", map[string]interface{}{
						"error": buildErr.Error(),
					})
					continue
				}
				ix = fresh
				result = sessionindex.UpdateRebuilt
			}

			if result != sessionindex.UpdateUnchanged {
				logger.Info("Index updated", map[string]interface{}{
					"result":       result.String(),
					"totalRecords": ix.TotalRecords(),
					"fileEdits":    len(ix.FileEdits),
				})
				saveSnapshot(cfg, logger, sessionFile, ix)
				recordSession(logger, sessionFile, projectRoot, ix)
			}

		case <-ctx.Done():
			logger.Info("Stopping watch", nil)
			return nil
		}
	}
}
