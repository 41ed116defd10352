// Package model defines the canonical session representation shared by all
// log adapters and renderers.
package model

import (
	"encoding/json"
	"time"
)

// Agent identifies the source log format a session was parsed from.
type Agent string

const (
	// AgentClaude identifies Claude Code JSONL session logs.
	AgentClaude Agent = "claude"
	// AgentCodex identifies Codex CLI rollout JSONL session logs.
	AgentCodex Agent = "codex"
)

// Role is the normalized speaker of an event.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// BlockType tags a ContentBlock variant.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockCode       BlockType = "code"
	BlockToolResult BlockType = "toolResult"
	BlockTable      BlockType = "table"
	BlockImage      BlockType = "image"
)

// ContentBlock is one tagged portion of an event payload. Only the fields
// relevant to its Type are populated.
type ContentBlock struct {
	Type BlockType `json:"type"`
	// Text carries the body for text, code and toolResult blocks.
	Text string `json:"text,omitempty"`
	// Language is the fence language hint for code blocks.
	Language string `json:"language,omitempty"`
	// Rows holds table cells, first row being the header.
	Rows [][]string `json:"rows,omitempty"`
	// URL references external image content.
	URL string `json:"url,omitempty"`
}

// ToolStatus tracks the lifecycle of a tool invocation.
type ToolStatus string

const (
	// StatusPending marks a call whose result never arrived.
	StatusPending ToolStatus = "pending"
	StatusSuccess ToolStatus = "success"
	StatusError   ToolStatus = "error"
	// StatusUnmatched marks a synthetic event built from a result whose
	// call identifier was never seen.
	StatusUnmatched ToolStatus = "unmatched"
)

// ToolInvocation pairs a tool call with its (optional) result.
type ToolInvocation struct {
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input,omitempty"`
	Result *string         `json:"result"`
	Status ToolStatus      `json:"status"`
}

// Event is one ordered unit of conversation or tool activity.
// Index values form a dense 1..N range matching source order.
// A zero Timestamp means the source carried none.
type Event struct {
	Index     int
	Role      Role
	Timestamp time.Time
	Content   []ContentBlock
	Tool      *ToolInvocation
}

// Session is the normalized, source-independent representation of one
// transcript. It is built once by an adapter and never mutated afterwards.
type Session struct {
	Agent     Agent
	SessionID string
	Events    []Event
}

// PlainText concatenates the text of an event's text blocks.
func (e Event) PlainText() string {
	var out string
	for _, block := range e.Content {
		if block.Type != BlockText || block.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += block.Text
	}
	return out
}

// HasContent reports whether the event carries anything worth rendering.
func (e Event) HasContent() bool {
	if e.Tool != nil {
		return true
	}
	for _, block := range e.Content {
		if block.Text != "" || len(block.Rows) > 0 || block.URL != "" {
			return true
		}
	}
	return false
}
