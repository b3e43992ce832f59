package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"slx/internal/registry"
	"slx/internal/session"
	"slx/internal/sessionindex"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *StatusResponse:
		return formatStatusHuman(v), nil
	case *EditsResponse:
		return formatEditsHuman(v), nil
	case *ContextResponse:
		return formatContextHuman(v), nil
	case *LogResponse:
		return formatLogHuman(v), nil
	case *SessionsResponse:
		return formatSessionsHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// StatusResponse is the CLI payload for `slx status`.
type StatusResponse struct {
	SessionFile string                   `json:"sessionFile" yaml:"sessionFile"`
	Status      sessionindex.IndexStatus `json:"status" yaml:"status"`
	UpdateState string                   `json:"updateState,omitempty" yaml:"updateState,omitempty"`
}

// EditsResponse is the CLI payload for `slx edits`.
type EditsResponse struct {
	SessionFile string                  `json:"sessionFile" yaml:"sessionFile"`
	FileEdits   []sessionindex.FileEdit `json:"fileEdits" yaml:"fileEdits"`
}

// ContextResponse is the CLI payload for `slx context`.
type ContextResponse struct {
	SessionFile string                    `json:"sessionFile" yaml:"sessionFile"`
	Context     *sessionindex.EditContext `json:"context" yaml:"context"`
}

// LogResponse is the CLI payload for `slx log`.
type LogResponse struct {
	SessionFile  string           `json:"sessionFile" yaml:"sessionFile"`
	TotalRecords uint32           `json:"totalRecords" yaml:"totalRecords"`
	Events       []*session.Event `json:"events" yaml:"events"`
}

// SessionsResponse is the CLI payload for `slx sessions`.
type SessionsResponse struct {
	Sessions []registry.Session `json:"sessions" yaml:"sessions"`
}

func formatStatusHuman(resp *StatusResponse) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Session: %s\n", resp.SessionFile))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	readyIcon := "✓"
	readyText := "Ready"
	if !resp.Status.Ready {
		readyIcon = "✗"
		readyText = "Not ready"
	}
	b.WriteString(fmt.Sprintf("%s Index: %s\n", readyIcon, readyText))
	if resp.Status.Error != "" {
		b.WriteString(fmt.Sprintf("  Error: %s\n", resp.Status.Error))
	}
	if resp.UpdateState != "" {
		b.WriteString(fmt.Sprintf("  Last update: %s\n", resp.UpdateState))
	}
	b.WriteString(fmt.Sprintf("  Records: %d\n", resp.Status.TotalRecords))
	b.WriteString(fmt.Sprintf("  File edits: %d\n", resp.Status.FileEditCount))
	b.WriteString(fmt.Sprintf("  Files edited: %d\n", resp.Status.FilesEditedCount))

	return b.String()
}

func formatEditsHuman(resp *EditsResponse) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("File edits in %s\n", resp.SessionFile))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(resp.FileEdits) == 0 {
		b.WriteString("No file edits found.\n")
		return b.String()
	}

	for _, edit := range resp.FileEdits {
		marker := "M"
		if edit.EditType == sessionindex.EditAdded {
			marker = "A"
		}
		b.WriteString(fmt.Sprintf("  %s %s", marker, edit.Path))
		if edit.LastEditedAt != "" {
			b.WriteString(fmt.Sprintf("  (%s)", edit.LastEditedAt))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatContextHuman(resp *ContextResponse) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Edit context for line %d\n", resp.Context.EditLine))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Trigger line: %d\n\n", resp.Context.TriggerLine))

	for _, ev := range resp.Context.Events {
		writeEventHuman(&b, ev)
	}

	return b.String()
}

func formatLogHuman(resp *LogResponse) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Records in %s (%d total)\n", resp.SessionFile, resp.TotalRecords))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(resp.Events) == 0 {
		b.WriteString("No records.\n")
		return b.String()
	}

	for _, ev := range resp.Events {
		writeEventHuman(&b, ev)
	}

	return b.String()
}

func writeEventHuman(b *strings.Builder, ev *session.Event) {
	b.WriteString(fmt.Sprintf("[%d] %s", ev.Sequence, ev.Role))
	if ev.Timestamp != "" {
		b.WriteString(fmt.Sprintf(" @ %s", ev.Timestamp))
	}
	b.WriteString("\n")
	if ev.Text != "" {
		b.WriteString(indent(truncate(ev.Text, 400), "  "))
		b.WriteString("\n")
	}
	for _, tool := range ev.ToolCalls {
		b.WriteString(fmt.Sprintf("  -> %s\n", tool))
	}
	b.WriteString("\n")
}

func formatSessionsHuman(resp *SessionsResponse) string {
	var b strings.Builder

	b.WriteString("Known sessions\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(resp.Sessions) == 0 {
		b.WriteString("No sessions indexed yet. Run 'slx build <session.jsonl>'.\n")
		return b.String()
	}

	for _, sess := range resp.Sessions {
		b.WriteString(fmt.Sprintf("  %s\n", sess.Path))
		b.WriteString(fmt.Sprintf("    id: %s\n", sess.ID))
		b.WriteString(fmt.Sprintf("    records: %d, file edits: %d, indexed: %s\n",
			sess.TotalRecords, sess.FileEditCount, sess.LastIndexedAt.Format(time.RFC3339)))
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
