// Package store locates and loads recorded sessions on disk.
package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"logreplay/internal/model"
)

var errStop = errors.New("stop iteration")

// minSessionSize filters out empty or truncated log stubs during discovery.
const minSessionSize = 1024

// Root is a directory tree holding session logs for one agent.
type Root struct {
	Agent model.Agent
	Dir   string
}

// DefaultRoots returns the standard log locations under the home directory.
func DefaultRoots() []Root {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []Root{
		{Agent: model.AgentClaude, Dir: filepath.Join(home, ".claude", "projects")},
		{Agent: model.AgentCodex, Dir: filepath.Join(home, ".codex", "sessions")},
	}
}

// Summary describes one discovered session without holding its events.
type Summary struct {
	Agent     model.Agent `json:"agent"`
	SessionID string      `json:"sessionId"`
	Path      string      `json:"path"`
	StartedAt time.Time   `json:"startedAt,omitzero"`
	EndedAt   time.Time   `json:"endedAt,omitzero"`
	Events    int         `json:"events"`
	Preview   string      `json:"preview"`
}

// DurationSeconds returns the covered wall-clock span, or 0 when timestamps
// are missing.
func (s Summary) DurationSeconds() int {
	if s.StartedAt.IsZero() || s.EndedAt.IsZero() || s.EndedAt.Before(s.StartedAt) {
		return 0
	}
	return int(s.EndedAt.Sub(s.StartedAt).Seconds())
}

// ListOptions controls session discovery.
type ListOptions struct {
	Roots      []Root
	Agent      model.Agent
	After      *time.Time
	Before     *time.Time
	Limit      int
	MaxPreview int
}

// ListResult contains session summaries and non-fatal warnings.
type ListResult struct {
	Summaries []Summary
	Warnings  []error
}

// ListSessions walks the configured roots and summarizes every session log
// it can parse. Unreadable files become warnings, not errors.
func ListSessions(opts ListOptions) (ListResult, error) {
	roots := opts.Roots
	if len(roots) == 0 {
		roots = DefaultRoots()
	}
	if len(roots) == 0 {
		return ListResult{}, errors.New("no session roots configured")
	}

	var result ListResult
	for _, root := range roots {
		if opts.Agent != "" && root.Agent != opts.Agent {
			continue
		}
		if _, err := os.Stat(root.Dir); err != nil {
			continue
		}
		err := filepath.WalkDir(root.Dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				result.Warnings = append(result.Warnings, fmt.Errorf("walk %s: %w", path, walkErr))
				return nil
			}
			if d.IsDir() {
				if root.Agent == model.AgentClaude && d.Name() == "subagents" {
					return filepath.SkipDir
				}
				return nil
			}
			if !isSessionFile(root.Agent, d) {
				return nil
			}

			summary, err := Summarize(path, root.Agent)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Errorf("summarize %s: %w", path, err))
				return nil
			}
			if opts.After != nil && summary.StartedAt.Before(*opts.After) {
				return nil
			}
			if opts.Before != nil && summary.StartedAt.After(*opts.Before) {
				return nil
			}
			if opts.MaxPreview > 0 {
				summary.Preview = truncate(summary.Preview, opts.MaxPreview)
			}
			result.Summaries = append(result.Summaries, summary)
			return nil
		})
		if err != nil {
			return result, err
		}
	}

	sort.Slice(result.Summaries, func(i, j int) bool {
		return result.Summaries[i].StartedAt.After(result.Summaries[j].StartedAt)
	})
	if opts.Limit > 0 && len(result.Summaries) > opts.Limit {
		result.Summaries = result.Summaries[:opts.Limit]
	}
	return result, nil
}

// Walk calls fn for every session log file under the roots. Missing root
// directories are skipped silently.
func Walk(roots []Root, fn func(agent model.Agent, path string, info fs.FileInfo) error) error {
	if len(roots) == 0 {
		roots = DefaultRoots()
	}
	for _, root := range roots {
		if _, err := os.Stat(root.Dir); err != nil {
			continue
		}
		agent := root.Agent
		err := filepath.WalkDir(root.Dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if d.IsDir() {
				if agent == model.AgentClaude && d.Name() == "subagents" {
					return filepath.SkipDir
				}
				return nil
			}
			if !isSessionFile(agent, d) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			return fn(agent, path, info)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func isSessionFile(agent model.Agent, d fs.DirEntry) bool {
	name := d.Name()
	if !strings.HasSuffix(name, ".jsonl") && !strings.HasSuffix(name, ".jsonl.zst") {
		return false
	}
	switch agent {
	case model.AgentCodex:
		return strings.HasPrefix(name, "rollout-")
	case model.AgentClaude:
		info, err := d.Info()
		if err != nil {
			return false
		}
		return info.Size() >= minSessionSize
	default:
		return true
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

// FindSessionPath searches the roots for a session whose id matches id.
// A file name containing id also matches, which allows short prefixes.
func FindSessionPath(roots []Root, id string) (string, error) {
	if id == "" {
		return "", errors.New("session id is required")
	}
	if len(roots) == 0 {
		roots = DefaultRoots()
	}

	var matched string
	for _, root := range roots {
		if _, err := os.Stat(root.Dir); err != nil {
			continue
		}
		err := filepath.WalkDir(root.Dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() || !isSessionFile(root.Agent, d) {
				return nil
			}
			if strings.Contains(d.Name(), id) {
				matched = path
				return errStop
			}
			summary, err := Summarize(path, root.Agent)
			if err == nil && summary.SessionID == id {
				matched = path
				return errStop
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			return "", err
		}
		if matched != "" {
			return matched, nil
		}
	}
	return "", fmt.Errorf("session %s not found", id)
}

// Open returns a reader over the session log at path, transparently
// decompressing zstd archives.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd %s: %w", path, err)
	}
	return &zstdReadCloser{dec: dec, f: f}, nil
}

type zstdReadCloser struct {
	dec *zstd.Decoder
	f   *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.f.Close()
}

// Load parses the session at path. When agent is empty the format is
// detected from the file contents.
func Load(path string, agent model.Agent) (*model.Result, error) {
	if agent == "" {
		detected, err := DetectAgent(path)
		if err != nil {
			return nil, err
		}
		agent = detected
	}
	adapter, err := model.NewAdapter(agent)
	if err != nil {
		return nil, err
	}
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return adapter.Parse(r)
}

// Summarize loads the session at path and condenses it to a Summary.
func Summarize(path string, agent model.Agent) (Summary, error) {
	res, err := Load(path, agent)
	if err != nil {
		return Summary{}, err
	}
	sess := res.Session

	summary := Summary{
		Agent:     sess.Agent,
		SessionID: sess.SessionID,
		Path:      path,
		Events:    len(sess.Events),
	}
	if summary.SessionID == "" {
		summary.SessionID = sessionIDFromName(path)
	}
	for _, ev := range sess.Events {
		if ev.Timestamp.IsZero() {
			continue
		}
		if summary.StartedAt.IsZero() {
			summary.StartedAt = ev.Timestamp
		}
		summary.EndedAt = ev.Timestamp
	}
	for _, ev := range sess.Events {
		if ev.Role != model.RoleUser {
			continue
		}
		text := strings.TrimSpace(ev.PlainText())
		if text == "" {
			continue
		}
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
		summary.Preview = text
		break
	}
	return summary, nil
}

func sessionIDFromName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".zst")
	name = strings.TrimSuffix(name, ".jsonl")
	return name
}

// knownTypes maps first-line record types to the agent that produces them.
var knownTypes = map[string]model.Agent{
	"user":                  model.AgentClaude,
	"assistant":             model.AgentClaude,
	"summary":               model.AgentClaude,
	"system":                model.AgentClaude,
	"file-history-snapshot": model.AgentClaude,
	"session_meta":          model.AgentCodex,
	"response_item":         model.AgentCodex,
	"event_msg":             model.AgentCodex,
	"turn_context":          model.AgentCodex,
	"compacted":             model.AgentCodex,
}

// DetectAgent sniffs the log format from the leading records of the file.
func DetectAgent(path string) (model.Agent, error) {
	r, err := Open(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 1024)
	scanner.Buffer(buf, 8*1024*1024)

	for i := 0; i < 20 && scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			continue
		}
		if agent, ok := knownTypes[probe.Type]; ok {
			return agent, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("detect format %s: %w", path, err)
	}
	return "", fmt.Errorf("unrecognized session format: %s", path)
}
