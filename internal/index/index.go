// Package index maintains a sqlite cache of session summaries so repeated
// listings do not reparse every log file.
package index

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"logreplay/internal/model"
	"logreplay/internal/store"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sessions (
    path       TEXT PRIMARY KEY,
    agent      TEXT NOT NULL,
    session_id TEXT NOT NULL,
    started_at TEXT NOT NULL DEFAULT '',
    ended_at   TEXT NOT NULL DEFAULT '',
    events     INTEGER NOT NULL DEFAULT 0,
    preview    TEXT NOT NULL DEFAULT '',
    mtime      INTEGER NOT NULL DEFAULT 0,
    size       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

// schemaVersion is bumped whenever summary extraction changes to force a
// full re-index.
const schemaVersion = "1"

// DB is an open summary cache.
type DB struct {
	db *sql.DB
}

// DefaultPath returns the cache location under the user cache directory.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "logreplay-index.db"
	}
	return filepath.Join(dir, "logreplay", "index.db")
}

// OpenDB opens or creates the cache database at dbPath.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	d.migrateSchemaVersion()
	return d, nil
}

func (d *DB) migrateSchemaVersion() {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err != nil || ver != schemaVersion {
		// force a refresh of all rows on the next Rebuild
		d.db.Exec("UPDATE sessions SET mtime = 0, size = 0")
		d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	}
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Stats reports what a Rebuild changed.
type Stats struct {
	Scanned   int
	Refreshed int
	Removed   int
}

// Rebuild synchronizes the cache with the session files under roots.
// Files whose mtime and size are unchanged keep their cached summary.
func (d *DB) Rebuild(roots []store.Root) (Stats, error) {
	var stats Stats

	known, err := d.allPaths()
	if err != nil {
		return stats, err
	}
	seen := make(map[string]struct{})

	err = store.Walk(roots, func(agent model.Agent, path string, info fs.FileInfo) error {
		stats.Scanned++
		seen[path] = struct{}{}

		var mtime, size int64
		err := d.db.QueryRow("SELECT mtime, size FROM sessions WHERE path = ?", path).Scan(&mtime, &size)
		if err == nil && mtime == info.ModTime().Unix() && size == info.Size() {
			return nil
		}
		if err != nil && err != sql.ErrNoRows {
			return err
		}

		summary, err := store.Summarize(path, agent)
		if err != nil {
			// unreadable files drop out of the cache
			d.db.Exec("DELETE FROM sessions WHERE path = ?", path)
			return nil
		}
		if err := d.upsert(summary, info); err != nil {
			return err
		}
		stats.Refreshed++
		return nil
	})
	if err != nil {
		return stats, err
	}

	for path := range known {
		if _, ok := seen[path]; ok {
			continue
		}
		if _, err := d.db.Exec("DELETE FROM sessions WHERE path = ?", path); err != nil {
			return stats, err
		}
		stats.Removed++
	}
	return stats, nil
}

func (d *DB) allPaths() (map[string]struct{}, error) {
	rows, err := d.db.Query("SELECT path FROM sessions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = struct{}{}
	}
	return paths, rows.Err()
}

func (d *DB) upsert(summary store.Summary, info fs.FileInfo) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO sessions
			(path, agent, session_id, started_at, ended_at, events, preview, mtime, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.Path,
		string(summary.Agent),
		summary.SessionID,
		timeText(summary.StartedAt),
		timeText(summary.EndedAt),
		summary.Events,
		summary.Preview,
		info.ModTime().Unix(),
		info.Size(),
	)
	return err
}

// ListOptions filters cached summaries.
type ListOptions struct {
	Agent  model.Agent
	After  *time.Time
	Before *time.Time
	Limit  int
}

// List returns cached summaries, newest first.
func (d *DB) List(opts ListOptions) ([]store.Summary, error) {
	query := "SELECT path, agent, session_id, started_at, ended_at, events, preview FROM sessions"
	var args []any
	if opts.Agent != "" {
		query += " WHERE agent = ?"
		args = append(args, string(opts.Agent))
	}
	query += " ORDER BY started_at DESC"
	if opts.Limit > 0 && opts.After == nil && opts.Before == nil {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Summary
	for rows.Next() {
		var s store.Summary
		var agent, started, ended string
		if err := rows.Scan(&s.Path, &agent, &s.SessionID, &started, &ended, &s.Events, &s.Preview); err != nil {
			return nil, err
		}
		s.Agent = model.Agent(agent)
		s.StartedAt = parseTimeText(started)
		s.EndedAt = parseTimeText(ended)
		if opts.After != nil && s.StartedAt.Before(*opts.After) {
			continue
		}
		if opts.Before != nil && s.StartedAt.After(*opts.Before) {
			continue
		}
		out = append(out, s)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, rows.Err()
}

// Count returns the number of cached sessions.
func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

func timeText(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTimeText(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
