// Package codex parses Codex CLI rollout JSONL transcripts into the
// canonical model.
package codex

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
	model.RegisterAdapter(model.AgentCodex, func() model.Adapter { return &Parser{} })
}

// Parser reads Codex rollout files. Records are either session_meta,
// response_item or event_msg entries; newer logs duplicate conversation
// text in event_msg records, which take precedence when present.
type Parser struct{}

// Agent implements model.Adapter.
func (p *Parser) Agent() model.Agent { return model.AgentCodex }

type rawEntry struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type payload struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Message   string          `json:"message"`
	Name      string          `json:"name"`
	Arguments string          `json:"arguments"`
	Input     string          `json:"input"`
	CallID    string          `json:"call_id"`
	Output    string          `json:"output"`
}

type record struct {
	entry   rawEntry
	payload payload
	ts      time.Time
}

// Parse implements model.Adapter. The stream is read fully before events
// are built: whether conversation text comes from event_msg or
// response_item records can only be decided after seeing the whole file.
func (p *Parser) Parse(r io.Reader) (*model.Result, error) {
	session := &model.Session{Agent: model.AgentCodex}
	result := &model.Result{Session: session}

	records, hasEventMsgs, err := p.collect(r, result)
	if err != nil {
		return nil, err
	}

	pending := map[string]int{}
	var lastTS time.Time

	appendEvent := func(ev model.Event) int {
		if !ev.Timestamp.IsZero() {
			if ev.Timestamp.Before(lastTS) {
				result.Warnings = append(result.Warnings, fmt.Errorf("timestamp %s precedes previous event, dropped", ev.Timestamp.Format(time.RFC3339)))
				ev.Timestamp = time.Time{}
			} else {
				lastTS = ev.Timestamp
			}
		}
		ev.Index = len(session.Events) + 1
		session.Events = append(session.Events, ev)
		return len(session.Events) - 1
	}

	for _, rec := range records {
		switch rec.entry.Type {
		case "session_meta":
			if session.SessionID == "" {
				session.SessionID = rec.payload.ID
			}

		case "event_msg":
			role, ok := eventMsgRole(rec.payload.Type)
			if !ok {
				continue
			}
			text := strings.TrimSpace(rec.payload.Message)
			if text == "" {
				continue
			}
			appendEvent(model.Event{
				Role:      role,
				Timestamp: rec.ts,
				Content:   []model.ContentBlock{{Type: model.BlockText, Text: text}},
			})

		case "response_item":
			switch rec.payload.Type {
			case "message":
				if hasEventMsgs {
					continue
				}
				role := model.Role(rec.payload.Role)
				if role != model.RoleUser && role != model.RoleAssistant {
					continue
				}
				text := strings.TrimSpace(extractText(rec.payload.Content))
				if text == "" {
					continue
				}
				appendEvent(model.Event{
					Role:      role,
					Timestamp: rec.ts,
					Content:   []model.ContentBlock{{Type: model.BlockText, Text: text}},
				})

			case "function_call", "custom_tool_call":
				name, input := normalizeToolCall(rec.payload)
				pos := appendEvent(model.Event{
					Role:      model.RoleTool,
					Timestamp: rec.ts,
					Tool: &model.ToolInvocation{
						Name:   name,
						Input:  input,
						Status: model.StatusPending,
					},
				})
				if rec.payload.CallID != "" {
					pending[rec.payload.CallID] = pos
				}

			case "function_call_output", "custom_tool_call_output":
				output := rec.payload.Output
				pos, ok := pending[rec.payload.CallID]
				if !ok {
					appendEvent(model.Event{
						Role:      model.RoleTool,
						Timestamp: rec.ts,
						Tool: &model.ToolInvocation{
							Result: &output,
							Status: model.StatusUnmatched,
						},
					})
					continue
				}
				delete(pending, rec.payload.CallID)
				tool := session.Events[pos].Tool
				tool.Result = &output
				tool.Status = model.StatusSuccess
			}
		}
	}

	return result, nil
}

// collect scans every record up front and reports whether the stream
// carries event_msg conversation messages.
func (p *Parser) collect(r io.Reader, result *model.Result) ([]record, bool, error) {
	var records []record
	hasEventMsgs := false

	scanner := bufio.NewScanner(r)
	// Allow large payloads
	const maxCapacity = 8 * 1024 * 1024
	buf := make([]byte, 1024)
	scanner.Buffer(buf, maxCapacity)

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

		rec := record{entry: entry}
		if len(entry.Payload) > 0 {
			if err := json.Unmarshal(entry.Payload, &rec.payload); err != nil {
				result.Warnings = append(result.Warnings, fmt.Errorf("line %d: unmarshal payload: %w", lineNo, err))
				continue
			}
		}

		if entry.Timestamp != "" {
			ts, err := parseTimestamp(entry.Timestamp)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Errorf("line %d: bad timestamp %q", lineNo, entry.Timestamp))
			} else {
				rec.ts = ts
			}
		}

		if entry.Type == "event_msg" && (rec.payload.Type == "user_message" || rec.payload.Type == "agent_message") {
			hasEventMsgs = true
		}

		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("scan session: %w", err)
	}

	return records, hasEventMsgs, nil
}

func eventMsgRole(payloadType string) (model.Role, bool) {
	switch payloadType {
	case "user_message":
		return model.RoleUser, true
	case "agent_message":
		return model.RoleAssistant, true
	default:
		return "", false
	}
}

type codexContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// extractText joins input_text, output_text and text blocks of a message
// payload. Plain string content passes through unchanged.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var blocks []codexContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var texts []string
	for _, block := range blocks {
		switch block.Type {
		case "input_text", "output_text", "text":
			if block.Text != "" {
				texts = append(texts, block.Text)
			}
		}
	}
	return strings.Join(texts, "\n")
}

// normalizeToolCall maps Codex tool calls onto the common tool
// vocabulary: shell_command becomes Bash with the workdir folded into the
// command, update_plan becomes Task with the explanation as description.
func normalizeToolCall(pl payload) (string, json.RawMessage) {
	if pl.Type == "custom_tool_call" {
		input, _ := json.Marshal(map[string]string{"input": pl.Input})
		return toolName(pl.Name), input
	}

	args := map[string]any{}
	if pl.Arguments != "" {
		if err := json.Unmarshal([]byte(pl.Arguments), &args); err != nil {
			args = map[string]any{}
		}
	}

	switch pl.Name {
	case "shell_command":
		command, _ := args["command"].(string)
		if workdir, ok := args["workdir"].(string); ok && workdir != "" {
			command = "cd " + workdir + "\n" + command
		}
		input, _ := json.Marshal(map[string]string{"command": command})
		return "Bash", input

	case "update_plan":
		description, _ := args["explanation"].(string)
		if description == "" {
			description = "update_plan"
		}
		input, _ := json.Marshal(map[string]string{"description": description})
		return "Task", input

	default:
		input, _ := json.Marshal(args)
		return toolName(pl.Name), input
	}
}

func toolName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
