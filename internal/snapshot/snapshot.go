// Package snapshot persists session indexes between process runs.
//
// A snapshot is a zstd-compressed JSON dump of a SessionIndex. Loading one
// lets a fresh process skip the full build and go straight to an incremental
// update against the live session file.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	slxerrors "slx/internal/errors"
	"slx/internal/sessionindex"
)

const (
	// SnapshotVersion is the current version of the snapshot format.
	SnapshotVersion = 1

	snapshotExt = ".idx.zst"
)

// envelope wraps the index with enough metadata to validate a snapshot
// against the session file it was taken from.
type envelope struct {
	Version     int                        `json:"version"`
	SessionFile string                     `json:"sessionFile"`
	Index       *sessionindex.SessionIndex `json:"index"`
}

// Path returns the snapshot file path for a session file.
func Path(dir, sessionFile string) string {
	base := filepath.Base(sessionFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+snapshotExt)
}

// Save writes a compressed snapshot of the index to dir.
func Save(dir, sessionFile string, ix *sessionindex.SessionIndex) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := json.Marshal(envelope{
		Version:     SnapshotVersion,
		SessionFile: sessionFile,
		Index:       ix,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	compressed := enc.EncodeAll(data, nil)
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close zstd encoder: %w", err)
	}

	// Write through a temp file so a crashed process never leaves a torn
	// snapshot behind.
	path := Path(dir, sessionFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	return nil
}

// Load reads a snapshot for a session file. Returns (nil, nil) when no
// snapshot exists or when the snapshot's version or source file does not
// match; callers then fall back to a full build.
func Load(dir, sessionFile string) (*sessionindex.SessionIndex, error) {
	compressed, err := os.ReadFile(Path(dir, sessionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, slxerrors.New(slxerrors.IOFailed, "read snapshot", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	data, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, slxerrors.New(slxerrors.SnapshotInvalid, "decompress snapshot", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, slxerrors.New(slxerrors.SnapshotInvalid, "parse snapshot", err)
	}

	// Version or source mismatch - treat as no snapshot.
	if env.Version != SnapshotVersion || env.SessionFile != sessionFile || env.Index == nil {
		return nil, nil
	}

	normalize(env.Index)
	return env.Index, nil
}

// normalize replaces nil maps and slices left by JSON decoding so a later
// incremental update never writes to a nil map.
func normalize(ix *sessionindex.SessionIndex) {
	if ix.LineOffsets == nil {
		ix.LineOffsets = []sessionindex.LineSpan{}
	}
	if ix.UUIDToLine == nil {
		ix.UUIDToLine = make(map[string]uint32)
	}
	if ix.ParentMap == nil {
		ix.ParentMap = make(map[string]string)
	}
	if ix.HumanTurnLines == nil {
		ix.HumanTurnLines = []uint32{}
	}
	if ix.FileEdits == nil {
		ix.FileEdits = []sessionindex.FileEdit{}
	}
	if ix.FileToEditLines == nil {
		ix.FileToEditLines = make(map[string][]uint32)
	}
	if ix.EditMetadata == nil {
		ix.EditMetadata = make(map[uint32]sessionindex.EditMetadata)
	}
}

// Remove deletes the snapshot for a session file, if present.
func Remove(dir, sessionFile string) error {
	err := os.Remove(Path(dir, sessionFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
