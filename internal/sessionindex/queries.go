package sessionindex

import (
	"fmt"
	"os"

	slxerrors "slx/internal/errors"
	"slx/internal/session"
)

// EditContext is the ordered slice of records from the human turn that
// triggered a file edit through to the edit itself.
type EditContext struct {
	Events      []*session.Event `json:"events"`
	TriggerLine uint32           `json:"triggerLine"`
	EditLine    uint32           `json:"editLine"`
}

// GetEditContext walks the parent chain backwards from an edit line until it
// reaches a human turn boundary, then materializes every record in that range
// by re-reading only the byte spans involved.
//
// The walk is bounded: a visited set terminates it even if the log ever
// contains a cyclic or self-referential parent link.
func GetEditContext(ix *SessionIndex, sessionFile string, editLine uint32) (*EditContext, error) {
	if ix == nil {
		return nil, slxerrors.New(slxerrors.IndexNotReady, "no index loaded for session", nil)
	}
	meta, ok := ix.EditMetadata[editLine]
	if !ok {
		return nil, slxerrors.New(slxerrors.EditNotFound,
			fmt.Sprintf("no edit metadata for line %d", editLine), nil)
	}

	lines := []uint32{editLine}
	seenLines := map[uint32]bool{editLine: true}
	visited := make(map[string]bool)

	current := meta.UUID
	for current != "" && !visited[current] {
		visited[current] = true

		parent, ok := ix.ParentOf(current)
		if !ok {
			break
		}
		parentLine, ok := ix.LineForUUID(parent)
		if !ok {
			// Parent outside the indexed range; chain exhausted.
			break
		}
		if seenLines[parentLine] {
			// The chain looped back on itself; corrupt log.
			break
		}

		lines = append(lines, parentLine)
		seenLines[parentLine] = true
		if ix.IsHumanTurn(parentLine) {
			break
		}
		current = parent
	}

	// Reverse into chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}

	// If the walk never hit a human turn, fall back to the nearest boundary
	// at or before the edit. The fallback only affects the reported trigger,
	// not the context list itself.
	var triggerLine uint32
	if len(lines) > 1 && ix.IsHumanTurn(lines[0]) {
		triggerLine = lines[0]
	} else if boundary, ok := ix.FindHumanBoundary(editLine); ok {
		triggerLine = boundary
	}

	events, err := loadEventsForLines(ix, sessionFile, lines)
	if err != nil {
		return nil, err
	}

	return &EditContext{
		Events:      events,
		TriggerLine: triggerLine,
		EditLine:    editLine,
	}, nil
}

// Records materializes a contiguous range of session records starting at the
// given line. A non-positive count means everything through the end of the
// log. A start past the last record yields an empty slice, not an error.
func Records(ix *SessionIndex, sessionFile string, start uint32, count int) ([]*session.Event, error) {
	if ix == nil {
		return nil, slxerrors.New(slxerrors.IndexNotReady, "no index loaded for session", nil)
	}

	total := len(ix.LineOffsets)
	if int(start) >= total {
		return []*session.Event{}, nil
	}
	end := total
	if count > 0 && int(start)+count < total {
		end = int(start) + count
	}

	lines := make([]uint32, 0, end-int(start))
	for line := int(start); line < end; line++ {
		lines = append(lines, uint32(line))
	}

	return loadEventsForLines(ix, sessionFile, lines)
}

// loadEventsForLines materializes records for specific lines by seeking to
// their stored offsets. Lines that fail to materialize are silently omitted.
func loadEventsForLines(ix *SessionIndex, sessionFile string, lines []uint32) ([]*session.Event, error) {
	f, err := os.Open(sessionFile)
	if err != nil {
		return nil, slxerrors.New(slxerrors.IOFailed, "open session file", err)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	events := make([]*session.Event, 0, len(lines))
	for _, line := range lines {
		if int(line) >= len(ix.LineOffsets) {
			continue
		}
		span := ix.LineOffsets[line]

		buf := make([]byte, span.Length)
		if _, err := f.ReadAt(buf, int64(span.Offset)); err != nil {
			continue
		}

		if ev := session.ParseEvent(trimLineEnding(buf), line, span.Offset); ev != nil {
			events = append(events, ev)
		}
	}

	return events, nil
}
