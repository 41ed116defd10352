// Package config loads user preferences from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"logreplay/internal/model"
	"logreplay/internal/store"
)

// Config holds user-tunable defaults. Zero or missing fields fall back to
// the values from Default.
type Config struct {
	Theme              string `toml:"theme"`
	ANSIMode           string `toml:"ansi_mode"`
	ListFormat         string `toml:"list_format"`
	BaseIntervalMs     int    `toml:"base_interval_ms"`
	CompressedTargetMs int    `toml:"compressed_target_ms"`
	ClaudeDir          string `toml:"claude_dir"`
	CodexDir           string `toml:"codex_dir"`
	IndexPath          string `toml:"index_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Theme:              "light",
		ANSIMode:           "strip",
		ListFormat:         "table",
		BaseIntervalMs:     800,
		CompressedTargetMs: 60000,
	}
}

// Path returns the default config file location.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "logreplay", "config.toml")
}

// Load reads the config file at the default location. A missing file is not
// an error and yields the defaults.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile reads the config file at path, merging it over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Theme == "" {
		c.Theme = def.Theme
	}
	if c.ANSIMode == "" {
		c.ANSIMode = def.ANSIMode
	}
	if c.ListFormat == "" {
		c.ListFormat = def.ListFormat
	}
	if c.BaseIntervalMs <= 0 {
		c.BaseIntervalMs = def.BaseIntervalMs
	}
	if c.CompressedTargetMs <= 0 {
		c.CompressedTargetMs = def.CompressedTargetMs
	}
}

// Roots returns the session directories to scan, honoring overrides.
func (c Config) Roots() []store.Root {
	roots := store.DefaultRoots()
	var out []store.Root
	for _, root := range roots {
		switch root.Agent {
		case model.AgentClaude:
			if c.ClaudeDir != "" {
				root.Dir = c.ClaudeDir
			}
		case model.AgentCodex:
			if c.CodexDir != "" {
				root.Dir = c.CodexDir
			}
		}
		out = append(out, root)
	}
	if len(out) == 0 {
		if c.ClaudeDir != "" {
			out = append(out, store.Root{Agent: model.AgentClaude, Dir: c.ClaudeDir})
		}
		if c.CodexDir != "" {
			out = append(out, store.Root{Agent: model.AgentCodex, Dir: c.CodexDir})
		}
	}
	return out
}

// BaseInterval returns the uniform playback interval.
func (c Config) BaseInterval() time.Duration {
	return time.Duration(c.BaseIntervalMs) * time.Millisecond
}

// CompressedTarget returns the compressed playback target duration.
func (c Config) CompressedTarget() time.Duration {
	return time.Duration(c.CompressedTargetMs) * time.Millisecond
}
