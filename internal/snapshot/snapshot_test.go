package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	slxerrors "slx/internal/errors"
	"slx/internal/sessionindex"
)

func testIndex() *sessionindex.SessionIndex {
	ix := sessionindex.Empty()
	ix.FileSize = 120
	ix.LastModified = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ix.LineOffsets = []sessionindex.LineSpan{{Offset: 0, Length: 60}, {Offset: 60, Length: 60}}
	ix.UUIDToLine["u1"] = 0
	ix.UUIDToLine["a1"] = 1
	ix.ParentMap["a1"] = "u1"
	ix.HumanTurnLines = []uint32{0}
	ix.FileEdits = []sessionindex.FileEdit{{Path: "x.txt", EditType: sessionindex.EditAdded}}
	ix.FileToEditLines["x.txt"] = []uint32{1}
	ix.EditMetadata[1] = sessionindex.EditMetadata{UUID: "a1"}
	return ix
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	sessionFile := "/logs/abc.jsonl"
	ix := testIndex()

	if err := Save(dir, sessionFile, ix); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir, sessionFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a snapshot, got nil")
	}
	if !reflect.DeepEqual(loaded, ix) {
		t.Errorf("roundtrip mismatch:\ngot:  %+v\nwant: %+v", loaded, ix)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	loaded, err := Load(t.TempDir(), "/logs/never-saved.jsonl")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != nil {
		t.Error("expected nil for missing snapshot")
	}
}

func TestLoadSourceMismatch(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, "/logs/abc.jsonl", testIndex()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Same base name, different directory: the envelope rejects it.
	loaded, err := Load(dir, "/other/abc.jsonl")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != nil {
		t.Error("expected nil for snapshot taken from a different file")
	}
}

func TestLoadCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	sessionFile := "/logs/abc.jsonl"
	if err := os.WriteFile(Path(dir, sessionFile), []byte("not zstd"), 0644); err != nil {
		t.Fatalf("failed to write corrupt snapshot: %v", err)
	}

	_, err := Load(dir, sessionFile)
	if err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
	var se *slxerrors.SlxError
	if !errors.As(err, &se) || se.Code != slxerrors.SnapshotInvalid {
		t.Errorf("expected SNAPSHOT_INVALID, got %v", err)
	}
}

func TestLoadNormalizesMissingMaps(t *testing.T) {
	dir := t.TempDir()
	sessionFile := "/logs/abc.jsonl"

	// A zero-value index marshals its maps as null; loading must hand back an
	// index that an incremental update can write into.
	if err := Save(dir, sessionFile, &sessionindex.SessionIndex{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir, sessionFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a snapshot, got nil")
	}
	if loaded.UUIDToLine == nil || loaded.ParentMap == nil ||
		loaded.FileToEditLines == nil || loaded.EditMetadata == nil {
		t.Errorf("maps not normalized: %+v", loaded)
	}
	if loaded.LineOffsets == nil || loaded.HumanTurnLines == nil || loaded.FileEdits == nil {
		t.Errorf("slices not normalized: %+v", loaded)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	sessionFile := "/logs/abc.jsonl"
	if err := Save(dir, sessionFile, testIndex()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := Remove(dir, sessionFile); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(Path(dir, sessionFile)); !os.IsNotExist(err) {
		t.Error("snapshot file still present after Remove")
	}

	// Removing again is not an error.
	if err := Remove(dir, sessionFile); err != nil {
		t.Errorf("Remove of absent snapshot failed: %v", err)
	}
}

func TestPath(t *testing.T) {
	got := Path("/cache", "/logs/abc.jsonl")
	want := filepath.Join("/cache", "abc.idx.zst")
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}
