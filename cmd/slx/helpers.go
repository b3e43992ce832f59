package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slx/internal/config"
	"slx/internal/logging"
	"slx/internal/registry"
	"slx/internal/sessionindex"
	"slx/internal/snapshot"
)

// newLogger creates a logger honoring the config log level. JSON output goes
// to stdout, so logs stay on stderr in human form regardless of --format.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}

// loadConfig loads config from the working directory, falling back to
// defaults on error.
func loadConfig() *config.Config {
	wd, err := os.Getwd()
	if err != nil {
		return config.DefaultConfig()
	}
	cfg, err := config.LoadConfig(wd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// resolveProjectRoot picks the project root from the CLI flag or config.
func resolveProjectRoot(cfg *config.Config) string {
	if projectRootFlag != "" {
		return projectRootFlag
	}
	if cfg.ProjectRoot != "" && cfg.ProjectRoot != "." {
		return cfg.ProjectRoot
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// openIndex returns an up-to-date index for a session file. When snapshots
// are enabled it warm-starts from the persisted snapshot and applies an
// incremental update; otherwise (or when no usable snapshot exists) it runs a
// full build. The refreshed snapshot is written back on success.
func openIndex(cfg *config.Config, logger *logging.Logger, sessionFile, projectRoot string) (*sessionindex.SessionIndex, error) {
	abs, err := filepath.Abs(sessionFile)
	if err != nil {
		return nil, err
	}

	if cfg.Snapshot.Enabled {
		ix, err := snapshot.Load(cfg.Snapshot.Dir, abs)
		if err != nil {
			logger.Warn("Failed to load snapshot, rebuilding", map[string]interface{}{
				"error": err.Error(),
			})
		} else if ix != nil {
			result, err := sessionindex.Update(ix, abs, projectRoot)
			if err == nil {
				logger.Debug("Index loaded from snapshot", map[string]interface{}{
					"result":       result.String(),
					"totalRecords": ix.TotalRecords(),
				})
				saveSnapshot(cfg, logger, abs, ix)
				return ix, nil
			}
			logger.Warn("Incremental update failed, rebuilding", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	ix, err := sessionindex.Build(abs, projectRoot)
	if err != nil {
		return nil, err
	}
	saveSnapshot(cfg, logger, abs, ix)
	return ix, nil
}

// saveSnapshot persists the index if snapshots are enabled. Failures are
// logged, not fatal: the snapshot is only a warm-start optimization.
func saveSnapshot(cfg *config.Config, logger *logging.Logger, sessionFile string, ix *sessionindex.SessionIndex) {
	if !cfg.Snapshot.Enabled {
		return
	}
	if err := snapshot.Save(cfg.Snapshot.Dir, sessionFile, ix); err != nil {
		logger.Warn("Failed to save snapshot", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// recordSession upserts the session into the registry. Registry failures are
// logged, not fatal.
func recordSession(logger *logging.Logger, sessionFile, projectRoot string, ix *sessionindex.SessionIndex) {
	reg, err := registry.Open(registryDir(), logger)
	if err != nil {
		logger.Warn("Failed to open session registry", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer reg.Close() //nolint:errcheck // Best effort cleanup

	abs, err := filepath.Abs(sessionFile)
	if err != nil {
		abs = sessionFile
	}

	sess := registry.Session{
		ID:            registry.SessionID(abs),
		Path:          abs,
		ProjectRoot:   projectRoot,
		TotalRecords:  ix.TotalRecords(),
		FileEditCount: uint32(len(ix.FileEdits)),
		LastIndexedAt: time.Now(),
	}
	if existing, err := reg.Get(abs); err == nil && existing != nil {
		sess.ID = existing.ID
	}

	if err := reg.Record(sess); err != nil {
		logger.Warn("Failed to record session", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// registryDir returns the directory holding the sessions database.
func registryDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return ".slx"
	}
	return filepath.Join(wd, ".slx")
}
