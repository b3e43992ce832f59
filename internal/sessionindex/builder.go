package sessionindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	slxerrors "slx/internal/errors"
)

// readerBufSize is generous because tool invocations embed whole file
// contents in a single log line.
const readerBufSize = 256 * 1024

// Build reads the entire session file once and constructs a complete index:
// line offsets, uuid mappings, the parent chain, human turn boundaries, and
// classified file edits. Lines that fail to parse still count for offset
// bookkeeping but contribute no derived data.
func Build(sessionFile, projectRoot string) (*SessionIndex, error) {
	info, err := os.Stat(sessionFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, slxerrors.New(slxerrors.SessionNotFound,
				fmt.Sprintf("session file not found: %s", sessionFile), err)
		}
		return nil, slxerrors.New(slxerrors.IOFailed, "stat session file", err)
	}

	f, err := os.Open(sessionFile)
	if err != nil {
		return nil, slxerrors.New(slxerrors.IOFailed, "open session file", err)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	ix := Empty()
	ix.FileSize = uint64(info.Size())
	ix.LastModified = info.ModTime()

	batch := newEditBatch()
	if err := scanRange(f, ix, batch, 0, 0, projectRoot, false); err != nil {
		return nil, err
	}

	batch.finalize(ix)

	// Human turns are appended in scan order during a full build, which is
	// already ascending; sorting keeps the invariant explicit.
	sort.Slice(ix.HumanTurnLines, func(i, j int) bool {
		return ix.HumanTurnLines[i] < ix.HumanTurnLines[j]
	})

	return ix, nil
}

// scanRange reads lines from r starting at the given byte offset and sequence
// number, recording offsets and feeding each parsed entry through the scanner
// and classifier. When sortedInsert is set, human turns are inserted in sorted
// order instead of appended; the batch's known check then consults the index
// state from before this pass.
func scanRange(r io.Reader, ix *SessionIndex, batch *editBatch, offset uint64, seq uint32, projectRoot string, sortedInsert bool) error {
	known := neverKnown
	if sortedInsert {
		known = func(path string) bool {
			_, ok := ix.FileToEditLines[path]
			return ok
		}
	}

	br := bufio.NewReaderSize(r, readerBufSize)
	for {
		chunk, err := br.ReadBytes('\n')
		if len(chunk) > 0 {
			ix.LineOffsets = append(ix.LineOffsets, LineSpan{Offset: offset, Length: len(chunk)})

			if entry, ok := scanLine(trimLineEnding(chunk)); ok {
				ingestIdentity(ix, entry, seq)

				if isHumanTurn(entry) {
					if sortedInsert {
						insertSorted(&ix.HumanTurnLines, seq)
					} else {
						ix.HumanTurnLines = append(ix.HumanTurnLines, seq)
					}
				}

				if entry.Type == "assistant" {
					batch.observeAssistant(entry, seq, projectRoot, known)
				}
			}

			offset += uint64(len(chunk))
			seq++
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return slxerrors.New(slxerrors.IOFailed, "read session file", err)
		}
	}
}

// insertSorted inserts seq into a sorted slice, skipping duplicates.
func insertSorted(lines *[]uint32, seq uint32) {
	s := *lines
	i := sort.Search(len(s), func(i int) bool { return s[i] >= seq })
	if i < len(s) && s[i] == seq {
		return
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = seq
	*lines = s
}

func trimLineEnding(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
