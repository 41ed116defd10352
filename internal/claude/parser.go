// Package claude parses Claude Code JSONL session transcripts into the
// canonical model.
package claude

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"logreplay/internal/model"
)

func init() {
	model.RegisterAdapter(model.AgentClaude, func() model.Adapter { return &Parser{} })
}

// Parser reads Claude Code session files. Each line is a JSON record;
// only user and assistant records contribute events.
type Parser struct{}

// Agent implements model.Adapter.
func (p *Parser) Agent() model.Agent { return model.AgentClaude }

type rawEntry struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Timestamp string          `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

type messagePayload struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// Parse implements model.Adapter. Malformed records are skipped with a
// warning; a read failure on the underlying stream is fatal.
func (p *Parser) Parse(r io.Reader) (*model.Result, error) {
	session := &model.Session{Agent: model.AgentClaude}
	result := &model.Result{Session: session}

	// Pending tool calls by call identifier, mapped to their position in
	// session.Events so results can be attached in place.
	pending := map[string]int{}
	var lastTS time.Time

	scanner := newScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry rawEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("line %d: unmarshal entry: %w", lineNo, err))
			continue
		}

		if session.SessionID == "" && entry.SessionID != "" {
			session.SessionID = entry.SessionID
		}

		if entry.Type != "user" && entry.Type != "assistant" {
			continue
		}

		ts := parseEntryTimestamp(entry.Timestamp, lineNo, result)
		if !ts.IsZero() {
			if ts.Before(lastTS) {
				result.Warnings = append(result.Warnings, fmt.Errorf("line %d: timestamp %s precedes previous event, dropped", lineNo, entry.Timestamp))
				ts = time.Time{}
			} else {
				lastTS = ts
			}
		}

		var msg messagePayload
		if len(entry.Message) > 0 {
			if err := json.Unmarshal(entry.Message, &msg); err != nil {
				result.Warnings = append(result.Warnings, fmt.Errorf("line %d: unmarshal message: %w", lineNo, err))
				continue
			}
		}

		role := model.Role(msg.Role)
		if role != model.RoleUser && role != model.RoleAssistant {
			continue
		}

		appendEntryEvents(session, role, ts, msg.Content, pending, result)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return result, nil
}

// appendEntryEvents decodes a message payload into canonical events:
// text blocks become one message event, each tool_use becomes a tool
// event, and tool_result blocks are attached to their pending call.
func appendEntryEvents(session *model.Session, role model.Role, ts time.Time, content json.RawMessage, pending map[string]int, result *model.Result) {
	text, blocks := decodeContent(content)

	if text != "" {
		session.Events = append(session.Events, model.Event{
			Index:     len(session.Events) + 1,
			Role:      role,
			Timestamp: ts,
			Content:   []model.ContentBlock{{Type: model.BlockText, Text: text}},
		})
	}

	for _, block := range blocks {
		switch block.Type {
		case "tool_use":
			ev := model.Event{
				Index:     len(session.Events) + 1,
				Role:      model.RoleTool,
				Timestamp: ts,
				Tool: &model.ToolInvocation{
					Name:   block.Name,
					Input:  block.Input,
					Status: model.StatusPending,
				},
			}
			session.Events = append(session.Events, ev)
			if block.ID != "" {
				pending[block.ID] = len(session.Events) - 1
			}

		case "tool_result":
			body := decodeResultContent(block.Content)
			pos, ok := pending[block.ToolUseID]
			if !ok {
				// Result without a recorded call: keep it visible as a
				// synthetic event instead of dropping it.
				session.Events = append(session.Events, model.Event{
					Index:     len(session.Events) + 1,
					Role:      model.RoleTool,
					Timestamp: ts,
					Tool: &model.ToolInvocation{
						Result: &body,
						Status: model.StatusUnmatched,
					},
				})
				continue
			}
			delete(pending, block.ToolUseID)
			tool := session.Events[pos].Tool
			tool.Result = &body
			if block.IsError {
				tool.Status = model.StatusError
			} else {
				tool.Status = model.StatusSuccess
			}
		}
	}
}

// decodeContent returns the joined text of the payload's text blocks plus
// any tool blocks. A plain string payload is a single text block.
func decodeContent(raw json.RawMessage) (string, []contentBlock) {
	if len(raw) == 0 {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString), nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", nil
	}

	var texts []string
	var tools []contentBlock
	for _, block := range blocks {
		switch block.Type {
		case "text":
			if block.Text != "" {
				texts = append(texts, block.Text)
			}
		case "tool_use", "tool_result":
			tools = append(tools, block)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), tools
}

// decodeResultContent flattens a tool_result content payload, which may be
// a plain string or a list of nested text blocks.
func decodeResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var nested []contentBlock
	if err := json.Unmarshal(raw, &nested); err != nil {
		return string(raw)
	}
	var parts []string
	for _, nb := range nested {
		if nb.Text != "" {
			parts = append(parts, nb.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func parseEntryTimestamp(value string, lineNo int, result *model.Result) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Errorf("line %d: bad timestamp %q", lineNo, value))
		return time.Time{}
	}
	return ts
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// Allow large payloads
	const maxCapacity = 8 * 1024 * 1024
	buf := make([]byte, 1024)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}
