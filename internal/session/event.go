// Package session materializes display-ready events from raw session log records.
package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event is one fully parsed record of a session log, ready for display.
type Event struct {
	Sequence   uint32   `json:"sequence"`
	Offset     uint64   `json:"offset"`
	Role       string   `json:"role"`
	UUID       string   `json:"uuid,omitempty"`
	ParentUUID string   `json:"parentUuid,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
	Text       string   `json:"text,omitempty"`
	ToolCalls  []string `json:"toolCalls,omitempty"`
	IsMeta     bool     `json:"isMeta,omitempty"`
}

type rawEvent struct {
	Type       string      `json:"type"`
	UUID       string      `json:"uuid"`
	ParentUUID string      `json:"parentUuid"`
	Timestamp  string      `json:"timestamp"`
	IsMeta     bool        `json:"isMeta"`
	Message    *rawMessage `json:"message"`
}

type rawMessage struct {
	Content json.RawMessage `json:"content"`
}

type rawContentItem struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type rawToolInput struct {
	FilePath string `json:"file_path"`
}

// ParseEvent parses one raw log line (already trimmed of its line terminator)
// into a display-ready event. Returns nil if the line cannot be interpreted;
// it never fails on malformed input.
func ParseEvent(raw []byte, sequence uint32, offset uint64) *Event {
	var re rawEvent
	if err := json.Unmarshal(raw, &re); err != nil {
		return nil
	}
	if re.Type == "" {
		return nil
	}

	ev := &Event{
		Sequence:   sequence,
		Offset:     offset,
		Role:       re.Type,
		UUID:       re.UUID,
		ParentUUID: re.ParentUUID,
		Timestamp:  re.Timestamp,
		IsMeta:     re.IsMeta,
	}

	if re.Message != nil {
		ev.Text, ev.ToolCalls = renderContent(re.Message.Content)
	}

	return ev
}

// renderContent flattens a message content value into display text and tool
// call summaries. Content may be absent, a bare string, or a list of items.
func renderContent(content json.RawMessage) (string, []string) {
	if len(content) == 0 {
		return "", nil
	}

	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return text, nil
	}

	var items []rawContentItem
	if err := json.Unmarshal(content, &items); err != nil {
		return "", nil
	}

	var parts []string
	var tools []string
	for _, item := range items {
		switch item.Type {
		case "text":
			if item.Text != "" {
				parts = append(parts, item.Text)
			}
		case "tool_use":
			tools = append(tools, summarizeToolUse(item))
		}
	}

	return strings.Join(parts, "\n"), tools
}

func summarizeToolUse(item rawContentItem) string {
	var input rawToolInput
	if len(item.Input) > 0 {
		_ = json.Unmarshal(item.Input, &input)
	}
	if input.FilePath != "" {
		return fmt.Sprintf("%s: %s", item.Name, input.FilePath)
	}
	return item.Name
}
