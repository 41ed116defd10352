// Package render turns a session view into one of four output formats:
// plain Markdown, a static HTML transcript, an interactive player and a
// terminal-style player. The HTML-family formats share two visual themes
// and embed a client-side playback engine where replay applies.
package render

import (
	"fmt"
	"io"
	"time"

	"logreplay/internal/ansi"
	"logreplay/internal/model"
)

// Format selects the output renderer.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPlayer   Format = "player"
	FormatTerminal Format = "terminal"
)

// ParseFormat validates a format flag value. The short alias md is
// accepted for markdown.
func ParseFormat(value string) (Format, error) {
	switch value {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "player", "terminal":
		return Format(value), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", value)
	}
}

// Theme selects the visual variant for HTML-family formats.
type Theme string

const (
	ThemeLight   Theme = "light"
	ThemeConsole Theme = "console"
)

// ParseTheme validates a theme flag value.
func ParseTheme(value string) (Theme, error) {
	switch Theme(value) {
	case ThemeLight, ThemeConsole:
		return Theme(value), nil
	default:
		return "", fmt.Errorf("unsupported theme: %s", value)
	}
}

// Options configures a renderer. Zero values select the defaults.
type Options struct {
	Theme Theme
	ANSI  ansi.Mode
	// Source names the input for the transcript header.
	Source string

	// BaseInterval and CompressedTarget seed the embedded playback
	// engine of the player formats.
	BaseInterval     time.Duration
	CompressedTarget time.Duration
}

func (o Options) withDefaults() Options {
	if o.Theme == "" {
		o.Theme = ThemeLight
	}
	if o.ANSI == "" {
		o.ANSI = ansi.ModeStrip
	}
	if o.BaseInterval <= 0 {
		o.BaseInterval = 800 * time.Millisecond
	}
	if o.CompressedTarget <= 0 {
		o.CompressedTarget = 60 * time.Second
	}
	return o
}

// Renderer writes one output document for a view. Implementations are
// deterministic and handle empty views without error.
type Renderer interface {
	Render(w io.Writer, view model.View) error
}

// New returns the renderer for a format.
func New(format Format, opts Options) (Renderer, error) {
	opts = opts.withDefaults()
	switch format {
	case FormatMarkdown:
		return &markdownRenderer{opts: opts}, nil
	case FormatHTML:
		return &htmlRenderer{opts: opts}, nil
	case FormatPlayer:
		return &playerRenderer{opts: opts}, nil
	case FormatTerminal:
		return &terminalRenderer{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Extension returns the conventional file extension for a format.
func Extension(format Format) string {
	if format == FormatMarkdown {
		return ".md"
	}
	return ".html"
}
