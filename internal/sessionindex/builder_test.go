package sessionindex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	slxerrors "slx/internal/errors"
)

func writeSession(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("failed to write session file: %v", err)
	}
	return path
}

func appendSession(t *testing.T, path string, lines ...string) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("failed to open session file for append: %v", err)
	}
	defer f.Close() //nolint:errcheck // Test cleanup

	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		t.Fatalf("failed to append to session file: %v", err)
	}
}

func humanLine(uuid, parent, text string) string {
	if parent == "" {
		return fmt.Sprintf(`{"type":"user","userType":"external","uuid":%q,"message":{"content":%q}}`, uuid, text)
	}
	return fmt.Sprintf(`{"type":"user","userType":"external","uuid":%q,"parentUuid":%q,"message":{"content":%q}}`, uuid, parent, text)
}

func assistantTextLine(uuid, parent, text string) string {
	return fmt.Sprintf(`{"type":"assistant","uuid":%q,"parentUuid":%q,"message":{"content":[{"type":"text","text":%q}]}}`, uuid, parent, text)
}

func assistantWriteLine(uuid, parent, filePath string) string {
	return fmt.Sprintf(`{"type":"assistant","uuid":%q,"parentUuid":%q,"timestamp":"2026-08-30T10:00:00Z","message":{"content":[{"type":"tool_use","name":"Write","input":{"file_path":%q,"content":"x"}}]}}`, uuid, parent, filePath)
}

func assistantEditLine(uuid, parent, filePath, oldString string) string {
	return fmt.Sprintf(`{"type":"assistant","uuid":%q,"parentUuid":%q,"timestamp":"2026-08-30T10:05:00Z","message":{"content":[{"type":"tool_use","name":"Edit","input":{"file_path":%q,"old_string":%q,"new_string":"y"}}]}}`, uuid, parent, filePath, oldString)
}

func toolResultLine(uuid, parent string) string {
	return fmt.Sprintf(`{"type":"user","userType":"external","uuid":%q,"parentUuid":%q,"message":{"content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`, uuid, parent)
}

func TestBuildScenario(t *testing.T) {
	// The two-line scenario: a human turn followed by an assistant Write.
	path := writeSession(t,
		`{"type":"user","userType":"external","uuid":"u1"}`,
		`{"type":"assistant","uuid":"a1","parentUuid":"u1","message":{"content":[{"type":"tool_use","name":"Write","input":{"file_path":"/proj/x.txt"}}]}}`,
	)

	ix, err := Build(path, "/proj")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := ix.TotalRecords(); got != 2 {
		t.Errorf("expected 2 records, got %d", got)
	}
	if len(ix.FileEdits) != 1 {
		t.Fatalf("expected 1 file edit, got %d", len(ix.FileEdits))
	}
	if ix.FileEdits[0].Path != "x.txt" {
		t.Errorf("expected path 'x.txt', got %q", ix.FileEdits[0].Path)
	}
	if ix.FileEdits[0].EditType != EditAdded {
		t.Errorf("expected edit type added, got %q", ix.FileEdits[0].EditType)
	}

	ec, err := GetEditContext(ix, path, 1)
	if err != nil {
		t.Fatalf("GetEditContext failed: %v", err)
	}
	if ec.TriggerLine != 0 {
		t.Errorf("expected trigger line 0, got %d", ec.TriggerLine)
	}
	if len(ec.Events) != 2 {
		t.Errorf("expected 2 events in context, got %d", len(ec.Events))
	}
}

func TestBuildOffsetIntegrity(t *testing.T) {
	path := writeSession(t,
		humanLine("u1", "", "first"),
		assistantTextLine("a1", "u1", "reply"),
		`not json at all`,
		assistantWriteLine("a2", "a1", "/proj/new.go"),
	)

	ix, err := Build(path, "/proj")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for i := 0; i+1 < len(ix.LineOffsets); i++ {
		next := ix.LineOffsets[i].Offset + uint64(ix.LineOffsets[i].Length)
		if next != ix.LineOffsets[i+1].Offset {
			t.Errorf("offset mismatch at line %d: %d+%d != %d",
				i, ix.LineOffsets[i].Offset, ix.LineOffsets[i].Length, ix.LineOffsets[i+1].Offset)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	last := ix.LineOffsets[len(ix.LineOffsets)-1]
	if last.Offset+uint64(last.Length) != uint64(info.Size()) {
		t.Errorf("last line does not end at file size")
	}
}

func TestBuildSkipsMalformedLines(t *testing.T) {
	path := writeSession(t,
		humanLine("u1", "", "hello"),
		`{"type":"assistant","uuid":"a1","parentU`, // killed mid-write
		assistantTextLine("a2", "u1", "reply"),
	)

	ix, err := Build(path, "/proj")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// The corrupt line still counts for offsets but contributes no data.
	if got := ix.TotalRecords(); got != 3 {
		t.Errorf("expected 3 records, got %d", got)
	}
	if _, ok := ix.LineForUUID("a1"); ok {
		t.Error("corrupt line should not contribute a uuid")
	}
	if line, ok := ix.LineForUUID("a2"); !ok || line != 2 {
		t.Errorf("expected a2 at line 2, got %d (ok=%v)", line, ok)
	}
}

func TestBuildParentChain(t *testing.T) {
	path := writeSession(t,
		humanLine("u1", "", "do it"),
		assistantTextLine("a1", "u1", "on it"),
		assistantWriteLine("a2", "a1", "/proj/out.txt"),
	)

	ix, err := Build(path, "/proj")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if parent, ok := ix.ParentOf("a2"); !ok || parent != "a1" {
		t.Errorf("expected parent of a2 to be a1, got %q (ok=%v)", parent, ok)
	}
	if parent, ok := ix.ParentOf("a1"); !ok || parent != "u1" {
		t.Errorf("expected parent of a1 to be u1, got %q (ok=%v)", parent, ok)
	}
	if _, ok := ix.ParentOf("u1"); ok {
		t.Error("u1 has no declared parent")
	}
}

func TestHumanTurnPredicate(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{
			name: "plain external user message",
			line: `{"type":"user","userType":"external","uuid":"u1","message":{"content":"hi"}}`,
			want: true,
		},
		{
			name: "list content without tool results",
			line: `{"type":"user","userType":"external","uuid":"u1","message":{"content":[{"type":"text","text":"hi"}]}}`,
			want: true,
		},
		{
			name: "tool result delivered under the user role",
			line: `{"type":"user","userType":"external","uuid":"u1","message":{"content":[{"type":"tool_result","content":"ok"}]}}`,
			want: false,
		},
		{
			name: "non-external user type",
			line: `{"type":"user","userType":"internal","uuid":"u1","message":{"content":"hi"}}`,
			want: false,
		},
		{
			name: "assistant message",
			line: `{"type":"assistant","uuid":"a1","message":{"content":"hi"}}`,
			want: false,
		},
		{
			name: "compact summary marker",
			line: `{"type":"user","userType":"external","uuid":"u1","isCompactSummary":true}`,
			want: false,
		},
		{
			name: "meta event",
			line: `{"type":"user","userType":"external","uuid":"u1","isMeta":true}`,
			want: false,
		},
		{
			name: "missing user type",
			line: `{"type":"user","uuid":"u1","message":{"content":"hi"}}`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := scanLine([]byte(tt.line))
			if !ok {
				t.Fatal("scanLine failed on well-formed input")
			}
			if got := isHumanTurn(entry); got != tt.want {
				t.Errorf("isHumanTurn = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassification(t *testing.T) {
	t.Run("edit with prior content is modified", func(t *testing.T) {
		path := writeSession(t,
			humanLine("u1", "", "change it"),
			assistantEditLine("a1", "u1", "/proj/main.go", "old text"),
			assistantWriteLine("a2", "a1", "/proj/main.go"),
		)
		ix, err := Build(path, "/proj")
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(ix.FileEdits) != 1 || ix.FileEdits[0].EditType != EditModified {
			t.Errorf("expected single modified edit, got %+v", ix.FileEdits)
		}
	})

	t.Run("write to fresh path is added", func(t *testing.T) {
		path := writeSession(t,
			humanLine("u1", "", "create it"),
			assistantWriteLine("a1", "u1", "/proj/new.go"),
		)
		ix, err := Build(path, "/proj")
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(ix.FileEdits) != 1 || ix.FileEdits[0].EditType != EditAdded {
			t.Errorf("expected single added edit, got %+v", ix.FileEdits)
		}
	})

	t.Run("edit with empty old_string downgrades to added", func(t *testing.T) {
		path := writeSession(t,
			humanLine("u1", "", "make it"),
			assistantEditLine("a1", "u1", "/proj/empty.go", ""),
		)
		ix, err := Build(path, "/proj")
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(ix.FileEdits) != 1 || ix.FileEdits[0].EditType != EditAdded {
			t.Errorf("expected single added edit, got %+v", ix.FileEdits)
		}
	})

	t.Run("unrecognized tools are ignored", func(t *testing.T) {
		path := writeSession(t,
			humanLine("u1", "", "look"),
			`{"type":"assistant","uuid":"a1","parentUuid":"u1","message":{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/proj/read.go"}}]}}`,
		)
		ix, err := Build(path, "/proj")
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(ix.FileEdits) != 0 {
			t.Errorf("expected no file edits, got %+v", ix.FileEdits)
		}
	})

	t.Run("paths outside project root pass through", func(t *testing.T) {
		path := writeSession(t,
			humanLine("u1", "", "global config"),
			assistantWriteLine("a1", "u1", "/etc/hosts"),
		)
		ix, err := Build(path, "/proj")
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(ix.FileEdits) != 1 || ix.FileEdits[0].Path != "/etc/hosts" {
			t.Errorf("expected pass-through path, got %+v", ix.FileEdits)
		}
	})

	t.Run("file edits sorted by path", func(t *testing.T) {
		path := writeSession(t,
			humanLine("u1", "", "two files"),
			assistantWriteLine("a1", "u1", "/proj/zz.go"),
			assistantWriteLine("a2", "a1", "/proj/aa.go"),
		)
		ix, err := Build(path, "/proj")
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(ix.FileEdits) != 2 || ix.FileEdits[0].Path != "aa.go" || ix.FileEdits[1].Path != "zz.go" {
			t.Errorf("expected edits sorted by path, got %+v", ix.FileEdits)
		}
	})

	t.Run("last edited timestamp follows the latest touch", func(t *testing.T) {
		path := writeSession(t,
			humanLine("u1", "", "touch twice"),
			assistantWriteLine("a1", "u1", "/proj/f.go"),
			assistantEditLine("a2", "a1", "/proj/f.go", "x"),
		)
		ix, err := Build(path, "/proj")
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(ix.FileEdits) != 1 || ix.FileEdits[0].LastEditedAt != "2026-08-30T10:05:00Z" {
			t.Errorf("expected timestamp from the Edit, got %+v", ix.FileEdits)
		}
	})
}

func TestBuildHumanTurnsSortedAndQueryable(t *testing.T) {
	path := writeSession(t,
		humanLine("u1", "", "one"),
		assistantTextLine("a1", "u1", "r1"),
		toolResultLine("u2", "a1"),
		humanLine("u3", "a1", "two"),
	)

	ix, err := Build(path, "/proj")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []uint32{0, 3}
	if len(ix.HumanTurnLines) != len(want) {
		t.Fatalf("expected human turns %v, got %v", want, ix.HumanTurnLines)
	}
	for i, line := range want {
		if ix.HumanTurnLines[i] != line {
			t.Fatalf("expected human turns %v, got %v", want, ix.HumanTurnLines)
		}
	}

	if !ix.IsHumanTurn(0) || !ix.IsHumanTurn(3) {
		t.Error("expected lines 0 and 3 to be human turns")
	}
	if ix.IsHumanTurn(2) {
		t.Error("tool result line must not be a human turn")
	}

	if boundary, ok := ix.FindHumanBoundary(2); !ok || boundary != 0 {
		t.Errorf("expected boundary 0 for line 2, got %d (ok=%v)", boundary, ok)
	}
	if boundary, ok := ix.FindHumanBoundary(3); !ok || boundary != 3 {
		t.Errorf("expected exact boundary 3, got %d (ok=%v)", boundary, ok)
	}
}

func TestBuildMissingFile(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "absent.jsonl"), "/proj")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var se *slxerrors.SlxError
	if !errors.As(err, &se) || se.Code != slxerrors.SessionNotFound {
		t.Errorf("expected SESSION_NOT_FOUND, got %v", err)
	}
}

func TestBuildDuplicateUUIDLastWins(t *testing.T) {
	path := writeSession(t,
		humanLine("dup", "", "first"),
		humanLine("dup", "", "second"),
	)

	ix, err := Build(path, "/proj")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if line, ok := ix.LineForUUID("dup"); !ok || line != 1 {
		t.Errorf("expected last-seen line 1 for duplicate uuid, got %d (ok=%v)", line, ok)
	}
}
