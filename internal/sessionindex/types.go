// Package sessionindex builds and queries derived indexes over session JSONL logs.
//
// A SessionIndex is built once when a session is opened and updated
// incrementally as the log grows. It provides O(1) UUID lookups, O(1) file
// edit retrieval, and O(depth) parent chain walking for edit context, plus
// pre-computed line offsets so individual records can be re-read without
// scanning the file.
package sessionindex

import (
	"sort"
	"time"
)

// EditType classifies how a file was touched during a session.
type EditType string

const (
	// EditAdded means the file was created during the session
	EditAdded EditType = "added"
	// EditModified means the file existed before the session touched it
	EditModified EditType = "modified"
)

// LineSpan records where one log line lives in the file. Length includes the
// line terminator, so Offset+Length is the offset of the next line.
type LineSpan struct {
	Offset uint64 `json:"offset"`
	Length int    `json:"length"`
}

// FileEdit describes one distinct file touched by the session.
type FileEdit struct {
	Path         string   `json:"path"`
	EditType     EditType `json:"editType"`
	LastEditedAt string   `json:"lastEditedAt,omitempty"`
}

// EditMetadata is enough to resume a parent-chain walk from an edit line.
type EditMetadata struct {
	UUID string `json:"uuid,omitempty"` // empty when the record carried no uuid
}

// SessionIndex is the derived index over one session's JSONL file.
//
// The index is owned by whichever caller holds the session's state: Build and
// Update mutate it in place, queries only read it. Access must be serialized
// per index; independent indexes for different sessions need no coordination.
type SessionIndex struct {
	// Source file state as of the last successful build/update.
	FileSize     uint64    `json:"fileSize"`
	LastModified time.Time `json:"lastModified"`

	// One span per line, indexed by sequence number.
	LineOffsets []LineSpan `json:"lineOffsets"`

	// UUID lookups for chain walking.
	UUIDToLine map[string]uint32 `json:"uuidToLine"`
	ParentMap  map[string]string `json:"parentMap"`

	// Sequence numbers of genuine human turns, ascending and deduplicated.
	HumanTurnLines []uint32 `json:"humanTurnLines"`

	// Pre-computed file edits, sorted by path.
	FileEdits       []FileEdit          `json:"fileEdits"`
	FileToEditLines map[string][]uint32 `json:"fileToEditLines"`

	// Sequence number -> metadata for every edit line.
	EditMetadata map[uint32]EditMetadata `json:"editMetadata"`
}

// Empty creates an empty index, used before building.
func Empty() *SessionIndex {
	return &SessionIndex{
		LineOffsets:     []LineSpan{},
		UUIDToLine:      make(map[string]uint32),
		ParentMap:       make(map[string]string),
		HumanTurnLines:  []uint32{},
		FileEdits:       []FileEdit{},
		FileToEditLines: make(map[string][]uint32),
		EditMetadata:    make(map[uint32]EditMetadata),
	}
}

// TotalRecords returns the number of records (lines) in the session.
func (ix *SessionIndex) TotalRecords() uint32 {
	return uint32(len(ix.LineOffsets))
}

// LineForUUID looks up the line number for a record UUID.
func (ix *SessionIndex) LineForUUID(uuid string) (uint32, bool) {
	line, ok := ix.UUIDToLine[uuid]
	return line, ok
}

// ParentOf returns the declared parent UUID for a record UUID. Parent links
// may dangle (the parent was never indexed); callers must treat a missing
// entry as end of chain, not an error.
func (ix *SessionIndex) ParentOf(uuid string) (string, bool) {
	parent, ok := ix.ParentMap[uuid]
	return parent, ok
}

// IsHumanTurn reports whether a line is a genuine human turn boundary.
func (ix *SessionIndex) IsHumanTurn(line uint32) bool {
	n := len(ix.HumanTurnLines)
	i := sort.Search(n, func(i int) bool { return ix.HumanTurnLines[i] >= line })
	return i < n && ix.HumanTurnLines[i] == line
}

// FindHumanBoundary returns the most recent human turn at or before the given
// line, or false if the line precedes the first human turn.
func (ix *SessionIndex) FindHumanBoundary(line uint32) (uint32, bool) {
	n := len(ix.HumanTurnLines)
	i := sort.Search(n, func(i int) bool { return ix.HumanTurnLines[i] > line })
	if i == 0 {
		return 0, false
	}
	return ix.HumanTurnLines[i-1], true
}

// Status returns a serializable snapshot of the index for presentation.
func (ix *SessionIndex) Status() IndexStatus {
	return IndexStatus{
		Ready:            true,
		TotalRecords:     ix.TotalRecords(),
		FileEditCount:    uint32(len(ix.FileEdits)),
		FilesEditedCount: uint32(len(ix.FileToEditLines)),
	}
}

// IndexStatus is the presentation snapshot of an index.
type IndexStatus struct {
	Ready            bool   `json:"ready"`
	TotalRecords     uint32 `json:"totalRecords"`
	FileEditCount    uint32 `json:"fileEditCount"`
	FilesEditedCount uint32 `json:"filesEditedCount"`
	Error            string `json:"error,omitempty"`
}

// BuildingStatus returns the status reported while an index is being built.
func BuildingStatus() IndexStatus {
	return IndexStatus{}
}

// ErrorStatus returns the status reported when indexing failed.
func ErrorStatus(msg string) IndexStatus {
	return IndexStatus{Error: msg}
}
