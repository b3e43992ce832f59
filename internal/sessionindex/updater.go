package sessionindex

import (
	"fmt"
	"io"
	"os"

	slxerrors "slx/internal/errors"
)

// UpdateResult is the terminal outcome of an incremental update.
type UpdateResult int

const (
	// UpdateUnchanged means the file matched the stored baseline exactly.
	UpdateUnchanged UpdateResult = iota
	// UpdateUpdated means only the appended byte range was indexed.
	UpdateUpdated
	// UpdateRebuilt means the file shrank and the index was rebuilt from scratch.
	UpdateRebuilt
)

func (r UpdateResult) String() string {
	switch r {
	case UpdateUnchanged:
		return "unchanged"
	case UpdateUpdated:
		return "updated"
	case UpdateRebuilt:
		return "rebuilt"
	default:
		return "unknown"
	}
}

// Update advances an existing index to match the current state of the session
// file. If the file grew, only the new bytes are parsed; if it shrank
// (truncation, compaction, or replacement), the index is rebuilt entirely; if
// nothing changed, no work is done.
//
// An I/O failure mid-update may leave the index partially advanced; callers
// should fall back to a full Build on the next attempt after an error.
func Update(ix *SessionIndex, sessionFile, projectRoot string) (UpdateResult, error) {
	info, err := os.Stat(sessionFile)
	if err != nil {
		if os.IsNotExist(err) {
			return UpdateUnchanged, slxerrors.New(slxerrors.SessionNotFound,
				fmt.Sprintf("session file not found: %s", sessionFile), err)
		}
		return UpdateUnchanged, slxerrors.New(slxerrors.IOFailed, "stat session file", err)
	}

	currentSize := uint64(info.Size())
	currentMtime := info.ModTime()

	if currentSize == ix.FileSize && currentMtime.Equal(ix.LastModified) {
		return UpdateUnchanged, nil
	}

	// A shrinking file breaks every append-only assumption; start over.
	if currentSize < ix.FileSize {
		fresh, err := Build(sessionFile, projectRoot)
		if err != nil {
			return UpdateUnchanged, err
		}
		*ix = *fresh
		return UpdateRebuilt, nil
	}

	f, err := os.Open(sessionFile)
	if err != nil {
		return UpdateUnchanged, slxerrors.New(slxerrors.IOFailed, "open session file", err)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	if _, err := f.Seek(int64(ix.FileSize), io.SeekStart); err != nil {
		return UpdateUnchanged, slxerrors.New(slxerrors.IOFailed, "seek session file", err)
	}

	// Equal size with a newer mtime reads zero new bytes and just advances
	// the baseline timestamp.
	batch := newEditBatch()
	if err := scanRange(f, ix, batch, ix.FileSize, uint32(len(ix.LineOffsets)), projectRoot, true); err != nil {
		return UpdateUnchanged, err
	}

	batch.mergeInto(ix)

	ix.FileSize = currentSize
	ix.LastModified = currentMtime

	return UpdateUpdated, nil
}
