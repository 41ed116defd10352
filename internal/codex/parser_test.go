package codex

import (
	"strings"
	"testing"

	"logreplay/internal/model"
)

func parseSample(t *testing.T, input string) *model.Result {
	t.Helper()
	result, err := (&Parser{}).Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return result
}

func TestParseResponseItemSession(t *testing.T) {
	input := `{"type":"session_meta","timestamp":"2025-04-01T09:00:00Z","payload":{"id":"rollout-42","cwd":"/work"}}
{"type":"response_item","timestamp":"2025-04-01T09:00:01Z","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"list files"}]}}
{"type":"response_item","timestamp":"2025-04-01T09:00:02Z","payload":{"type":"function_call","name":"shell_command","call_id":"c1","arguments":"{\"command\":\"ls\",\"workdir\":\"/work\"}"}}
{"type":"response_item","timestamp":"2025-04-01T09:00:03Z","payload":{"type":"function_call_output","call_id":"c1","output":"main.go"}}
{"type":"response_item","timestamp":"2025-04-01T09:00:04Z","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"One file: main.go"}]}}
`
	result := parseSample(t, input)
	s := result.Session
	if s.SessionID != "rollout-42" {
		t.Errorf("session id = %s", s.SessionID)
	}
	if len(s.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(s.Events))
	}

	tool := s.Events[1].Tool
	if tool == nil {
		t.Fatal("event 2 has no tool invocation")
	}
	if tool.Name != "Bash" {
		t.Errorf("tool name = %s, want Bash", tool.Name)
	}
	if !strings.Contains(string(tool.Input), `cd /work\nls`) {
		t.Errorf("tool input = %s", tool.Input)
	}
	if tool.Status != model.StatusSuccess {
		t.Errorf("tool status = %s", tool.Status)
	}
	if tool.Result == nil || *tool.Result != "main.go" {
		t.Errorf("tool result = %v", tool.Result)
	}
}

func TestParsePrefersEventMessages(t *testing.T) {
	// When event_msg conversation records exist, the duplicated
	// response_item message payloads are skipped.
	input := `{"type":"event_msg","timestamp":"2025-04-01T09:00:00Z","payload":{"type":"user_message","message":"hello"}}
{"type":"response_item","timestamp":"2025-04-01T09:00:00Z","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"hello"}]}}
{"type":"event_msg","timestamp":"2025-04-01T09:00:01Z","payload":{"type":"agent_message","message":"hi there"}}
`
	result := parseSample(t, input)
	events := result.Session.Events
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Role != model.RoleUser || events[1].Role != model.RoleAssistant {
		t.Errorf("roles = %s, %s", events[0].Role, events[1].Role)
	}
	if events[1].PlainText() != "hi there" {
		t.Errorf("text = %q", events[1].PlainText())
	}
}

func TestParseUpdatePlanBecomesTask(t *testing.T) {
	input := `{"type":"response_item","payload":{"type":"function_call","name":"update_plan","call_id":"c1","arguments":"{\"explanation\":\"outline the fix\"}"}}
`
	result := parseSample(t, input)
	tool := result.Session.Events[0].Tool
	if tool.Name != "Task" {
		t.Errorf("tool name = %s, want Task", tool.Name)
	}
	if !strings.Contains(string(tool.Input), "outline the fix") {
		t.Errorf("tool input = %s", tool.Input)
	}
	if tool.Status != model.StatusPending {
		t.Errorf("tool status = %s, want pending", tool.Status)
	}
}

func TestParseCustomToolCall(t *testing.T) {
	input := `{"type":"response_item","payload":{"type":"custom_tool_call","name":"apply_patch","call_id":"c1","input":"*** Begin Patch"}}
{"type":"response_item","payload":{"type":"custom_tool_call_output","call_id":"c1","output":"Done"}}
`
	result := parseSample(t, input)
	tool := result.Session.Events[0].Tool
	if tool.Name != "apply_patch" {
		t.Errorf("tool name = %s", tool.Name)
	}
	if tool.Result == nil || *tool.Result != "Done" {
		t.Errorf("tool result = %v", tool.Result)
	}
}

func TestParseUnmatchedOutput(t *testing.T) {
	input := `{"type":"response_item","payload":{"type":"function_call_output","call_id":"ghost","output":"stray"}}
`
	result := parseSample(t, input)
	events := result.Session.Events
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Tool.Status != model.StatusUnmatched {
		t.Errorf("status = %s, want unmatched", events[0].Tool.Status)
	}
}

func TestParseSkipsMalformedAndNoise(t *testing.T) {
	input := `{"type":"turn_context","payload":{"model":"o4"}}
{broken
{"type":"event_msg","payload":{"type":"token_count","info":{}}}
{"type":"event_msg","payload":{"type":"user_message","message":"only real message"}}
`
	result := parseSample(t, input)
	if len(result.Session.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(result.Session.Events))
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(result.Warnings), result.Warnings)
	}
}

func TestRegisteredWithModel(t *testing.T) {
	adapter, err := model.NewAdapter(model.AgentCodex)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if adapter.Agent() != model.AgentCodex {
		t.Errorf("agent = %s", adapter.Agent())
	}
}
