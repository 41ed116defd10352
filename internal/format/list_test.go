package format

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"logreplay/internal/model"
	"logreplay/internal/store"
)

func sampleSummaries() []store.Summary {
	return []store.Summary{
		{
			Agent:     model.AgentClaude,
			SessionID: "session-a",
			Path:      "/tmp/a.jsonl",
			StartedAt: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
			EndedAt:   time.Date(2025, 10, 1, 12, 1, 30, 0, time.UTC),
			Events:    10,
			Preview:   "Alpha",
		},
		{
			Agent:     model.AgentCodex,
			SessionID: "session-b",
			Path:      "/tmp/b.jsonl",
			StartedAt: time.Date(2025, 10, 2, 9, 30, 0, 0, time.UTC),
			EndedAt:   time.Date(2025, 10, 2, 9, 30, 45, 0, time.UTC),
			Events:    20,
			Preview:   "Beta",
		},
	}
}

func TestWriteSummariesPlain(t *testing.T) {
	var buf bytes.Buffer
	items := sampleSummaries()

	if err := WriteSummaries(&buf, items, true, "plain"); err != nil {
		t.Fatalf("WriteSummaries plain returned error: %v", err)
	}

	expected := strings.Join([]string{
		"started_at\tagent\tsession_id\tduration\tevents\tpreview",
		"2025-10-01T12:00:00Z\tclaude\tsession-a\t00:01:30\t10\tAlpha",
		"2025-10-02T09:30:00Z\tcodex\tsession-b\t00:00:45\t20\tBeta",
	}, "\n") + "\n"

	if got := buf.String(); got != expected {
		t.Fatalf("plain output mismatch:\nexpected: %q\nactual:   %q", expected, got)
	}
}

func TestWriteSummariesTable(t *testing.T) {
	var buf bytes.Buffer
	items := sampleSummaries()

	if err := WriteSummaries(&buf, items, true, "table"); err != nil {
		t.Fatalf("WriteSummaries table returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "DURATION") || !strings.Contains(out, "EVENTS") {
		t.Fatalf("table header missing expected columns:\n%s", out)
	}
	if !strings.Contains(out, "session-a") || !strings.Contains(out, "00:01:30") {
		t.Fatalf("table missing row data:\n%s", out)
	}
}

func TestWriteSummariesTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaries(&buf, nil, true, "table"); err != nil {
		t.Fatalf("WriteSummaries table returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "(no sessions)") {
		t.Fatalf("empty placeholder missing:\n%s", buf.String())
	}
}

func TestWriteSummariesInvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSummaries(&buf, sampleSummaries(), true, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWriteSummariesJSONL(t *testing.T) {
	var buf bytes.Buffer
	items := sampleSummaries()

	if err := WriteSummaries(&buf, items, false, "jsonl"); err != nil {
		t.Fatalf("WriteSummaries jsonl returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(items) {
		t.Fatalf("expected %d lines, got %d", len(items), len(lines))
	}
	if !strings.Contains(lines[0], "\"session-a\"") || !strings.Contains(lines[0], "\"agent\":\"claude\"") {
		t.Fatalf("first jsonl line unexpected: %s", lines[0])
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		0:    "00:00:00",
		-5:   "00:00:00",
		45:   "00:00:45",
		90:   "00:01:30",
		3725: "01:02:05",
	}
	for in, want := range cases {
		if got := formatDuration(in); got != want {
			t.Errorf("formatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}
