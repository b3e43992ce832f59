package sessionindex

import (
	"bytes"
	"encoding/json"
	"sort"

	"slx/internal/paths"
)

// scanEntry holds the minimal fields needed for indexing, extracted from one
// raw log line. All fields are optional in the log.
type scanEntry struct {
	Type             string       `json:"type"`
	UUID             string       `json:"uuid"`
	ParentUUID       string       `json:"parentUuid"`
	UserType         string       `json:"userType"`
	IsCompactSummary bool         `json:"isCompactSummary"`
	IsMeta           bool         `json:"isMeta"`
	Timestamp        string       `json:"timestamp"`
	Message          *scanMessage `json:"message"`
}

type scanMessage struct {
	Content json.RawMessage `json:"content"`
}

// contentItem is one element of a list-valued message content.
type contentItem struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type toolInput struct {
	FilePath  string `json:"file_path"`
	OldString string `json:"old_string"`
}

// scanLine parses one raw line (trimmed of its terminator) into the minimal
// indexing fields. Parse failure is non-fatal: the caller still accounts for
// the line's byte span, it just contributes no derived data.
func scanLine(raw []byte) (*scanEntry, bool) {
	var entry scanEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// contentItems returns the message content as a list of items, or nil when
// content is absent or not list-valued.
func (e *scanEntry) contentItems() []contentItem {
	if e.Message == nil || len(e.Message.Content) == 0 {
		return nil
	}
	trimmed := bytes.TrimLeft(e.Message.Content, " \t")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var items []contentItem
	if err := json.Unmarshal(e.Message.Content, &items); err != nil {
		return nil
	}
	return items
}

// isHumanTurn reports whether an entry is a genuine human conversation turn.
// The log overloads the "user" role for real input, tool results, and
// system-injected meta events; only the first counts as a boundary.
func isHumanTurn(e *scanEntry) bool {
	if e.Type != "user" {
		return false
	}
	if e.UserType != "external" {
		return false
	}
	for _, item := range e.contentItems() {
		if item.Type == "tool_result" {
			return false
		}
	}
	if e.IsCompactSummary {
		return false
	}
	if e.IsMeta {
		return false
	}
	return true
}

// ingestIdentity records the entry's uuid and parent link in the index maps.
func ingestIdentity(ix *SessionIndex, e *scanEntry, seq uint32) {
	if e.UUID == "" {
		return
	}
	ix.UUIDToLine[e.UUID] = seq
	if e.ParentUUID != "" {
		ix.ParentMap[e.UUID] = e.ParentUUID
	}
}

// editBatch accumulates file edit observations over one scanning pass. It is
// a plain value threaded through the scan loop and merged into the index once
// the pass completes, so the hot loop never mutates shared index state for
// edit classification.
type editBatch struct {
	operations   map[string]EditType
	priorContent map[string]bool
	timestamps   map[string]string
	editLines    map[string][]uint32
	metadata     map[uint32]EditMetadata
}

func newEditBatch() *editBatch {
	return &editBatch{
		operations:   make(map[string]EditType),
		priorContent: make(map[string]bool),
		timestamps:   make(map[string]string),
		editLines:    make(map[string][]uint32),
		metadata:     make(map[uint32]EditMetadata),
	}
}

// knownFunc reports whether a path already has edits recorded in the index
// from a previous pass. Full builds start from nothing.
type knownFunc func(path string) bool

func neverKnown(string) bool { return false }

// observeAssistant extracts tool invocations from an assistant entry. Only
// Edit and Write tools are recognized; everything else is ignored.
func (b *editBatch) observeAssistant(e *scanEntry, seq uint32, projectRoot string, known knownFunc) {
	for _, item := range e.contentItems() {
		if item.Type != "tool_use" || item.Name == "" || len(item.Input) == 0 {
			continue
		}

		var input toolInput
		if err := json.Unmarshal(item.Input, &input); err != nil {
			continue
		}
		if input.FilePath == "" {
			continue
		}

		rel := paths.NormalizePath(paths.MakeProjectRelative(input.FilePath, projectRoot))

		switch item.Name {
		case "Edit":
			// A non-empty old_string is a strong signal the file existed
			// before this session touched it.
			if input.OldString != "" {
				b.priorContent[rel] = true
			}
			b.operations[rel] = EditModified

		case "Write":
			// An Edit seen earlier for the same path takes precedence, and a
			// path already known to the index keeps its classification.
			if !known(rel) {
				if _, ok := b.operations[rel]; !ok {
					b.operations[rel] = EditAdded
				}
			}

		default:
			continue
		}

		if e.Timestamp != "" {
			b.timestamps[rel] = e.Timestamp
		}
		b.metadata[seq] = EditMetadata{UUID: e.UUID}
		b.editLines[rel] = append(b.editLines[rel], seq)
	}
}

// finalize resolves the batch into a fresh index after a full build. A path
// whose final operation is Modified but was never observed with prior content
// is downgraded to Added: an Edit with an empty old_string is effectively a
// creation.
func (b *editBatch) finalize(ix *SessionIndex) {
	edits := make([]FileEdit, 0, len(b.operations))
	for path, editType := range b.operations {
		if editType == EditModified && !b.priorContent[path] {
			editType = EditAdded
		}
		edits = append(edits, FileEdit{
			Path:         path,
			EditType:     editType,
			LastEditedAt: b.timestamps[path],
		})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].Path < edits[j].Path })
	ix.FileEdits = edits

	b.mergeLines(ix)
}

// mergeInto merges the batch into an existing index after an incremental
// pass. Paths already present keep their classification unless the new pass
// observed prior content, which promotes them to Modified; a path never
// regresses from Modified to Added. New paths follow the full-build
// finalization rule scoped to this batch.
func (b *editBatch) mergeInto(ix *SessionIndex) {
	for path, editType := range b.operations {
		if existing := findEdit(ix.FileEdits, path); existing != nil {
			if ts, ok := b.timestamps[path]; ok {
				existing.LastEditedAt = ts
			}
			if b.priorContent[path] {
				existing.EditType = EditModified
			}
			continue
		}

		finalType := editType
		if finalType == EditModified && !b.priorContent[path] {
			finalType = EditAdded
		}
		ix.FileEdits = append(ix.FileEdits, FileEdit{
			Path:         path,
			EditType:     finalType,
			LastEditedAt: b.timestamps[path],
		})
	}

	sort.Slice(ix.FileEdits, func(i, j int) bool { return ix.FileEdits[i].Path < ix.FileEdits[j].Path })

	b.mergeLines(ix)
}

func (b *editBatch) mergeLines(ix *SessionIndex) {
	for path, lines := range b.editLines {
		ix.FileToEditLines[path] = append(ix.FileToEditLines[path], lines...)
	}
	for seq, meta := range b.metadata {
		ix.EditMetadata[seq] = meta
	}
}

func findEdit(edits []FileEdit, path string) *FileEdit {
	for i := range edits {
		if edits[i].Path == path {
			return &edits[i]
		}
	}
	return nil
}
