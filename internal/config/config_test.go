package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileMissingYieldsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if cfg.Theme != "light" || cfg.ANSIMode != "strip" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.BaseInterval() != 800*time.Millisecond {
		t.Errorf("unexpected base interval %v", cfg.BaseInterval())
	}
	if cfg.CompressedTarget() != 60*time.Second {
		t.Errorf("unexpected compressed target %v", cfg.CompressedTarget())
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
theme = "console"
ansi_mode = "color"
base_interval_ms = 400
claude_dir = "/srv/claude"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if cfg.Theme != "console" || cfg.ANSIMode != "color" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.BaseInterval() != 400*time.Millisecond {
		t.Errorf("unexpected base interval %v", cfg.BaseInterval())
	}
	// untouched fields keep defaults
	if cfg.CompressedTargetMs != 60000 || cfg.ListFormat != "table" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("mystery = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestRootsOverride(t *testing.T) {
	cfg := Default()
	cfg.ClaudeDir = "/srv/claude"
	cfg.CodexDir = "/srv/codex"

	roots := cfg.Roots()
	if len(roots) == 0 {
		t.Fatal("expected roots")
	}
	for _, root := range roots {
		switch root.Agent {
		case "claude":
			if root.Dir != "/srv/claude" {
				t.Errorf("claude dir not overridden: %s", root.Dir)
			}
		case "codex":
			if root.Dir != "/srv/codex" {
				t.Errorf("codex dir not overridden: %s", root.Dir)
			}
		}
	}
}
