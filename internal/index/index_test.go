package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "logreplay/internal/claude"
	_ "logreplay/internal/codex"
	"logreplay/internal/model"
	"logreplay/internal/store"
)

const codexSample = `{"type":"session_meta","timestamp":"2025-10-27T13:00:00Z","payload":{"id":"codex-xyz"}}
{"type":"event_msg","timestamp":"2025-10-27T13:00:01Z","payload":{"type":"user_message","message":"list files"}}
{"type":"event_msg","timestamp":"2025-10-27T13:00:04Z","payload":{"type":"agent_message","message":"Sure."}}
`

func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(codexSample), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func openTestDB(t *testing.T) (*DB, []store.Root, string) {
	t.Helper()
	dir := t.TempDir()
	sessions := filepath.Join(dir, "sessions")
	writeSample(t, sessions, "rollout-codex-xyz.jsonl")

	db, err := OpenDB(filepath.Join(dir, "cache", "index.db"))
	if err != nil {
		t.Fatalf("OpenDB returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, []store.Root{{Agent: model.AgentCodex, Dir: sessions}}, sessions
}

func TestRebuildAndList(t *testing.T) {
	db, roots, _ := openTestDB(t)

	stats, err := db.Rebuild(roots)
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if stats.Scanned != 1 || stats.Refreshed != 1 || stats.Removed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	summaries, err := db.List(ListOptions{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	got := summaries[0]
	if got.SessionID != "codex-xyz" || got.Agent != model.AgentCodex {
		t.Errorf("unexpected summary %+v", got)
	}
	if got.Events != 2 || got.Preview != "list files" {
		t.Errorf("unexpected summary contents %+v", got)
	}
	want := time.Date(2025, 10, 27, 13, 0, 1, 0, time.UTC)
	if !got.StartedAt.Equal(want) {
		t.Errorf("unexpected start time %v", got.StartedAt)
	}
}

func TestRebuildSkipsUnchanged(t *testing.T) {
	db, roots, _ := openTestDB(t)

	if _, err := db.Rebuild(roots); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	stats, err := db.Rebuild(roots)
	if err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if stats.Scanned != 1 || stats.Refreshed != 0 {
		t.Fatalf("expected cached hit, got %+v", stats)
	}
}

func TestRebuildRemovesDeleted(t *testing.T) {
	db, roots, sessions := openTestDB(t)
	extra := writeSample(t, sessions, "rollout-extra.jsonl")

	if _, err := db.Rebuild(roots); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if n, _ := db.Count(); n != 2 {
		t.Fatalf("expected 2 cached sessions, got %d", n)
	}

	if err := os.Remove(extra); err != nil {
		t.Fatalf("remove: %v", err)
	}
	stats, err := db.Rebuild(roots)
	if err != nil {
		t.Fatalf("Rebuild after delete: %v", err)
	}
	if stats.Removed != 1 {
		t.Fatalf("expected 1 removal, got %+v", stats)
	}
	if n, _ := db.Count(); n != 1 {
		t.Fatalf("expected 1 cached session, got %d", n)
	}
}

func TestListFilters(t *testing.T) {
	db, roots, _ := openTestDB(t)
	if _, err := db.Rebuild(roots); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	after := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	summaries, err := db.List(ListOptions{After: &after})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected no sessions after %v, got %d", after, len(summaries))
	}

	summaries, err = db.List(ListOptions{Agent: model.AgentClaude})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected no claude sessions, got %d", len(summaries))
	}
}
