package render

import (
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"
	"time"

	"logreplay/internal/model"
)

// playerRenderer writes the interactive replay document: the filtered
// events plus the embedded playback engine, clock overlays and controls.
type playerRenderer struct {
	opts Options
}

type playerPage struct {
	Theme    template.CSS
	Messages template.HTML
	EngineJS template.JS
	Config   template.JS
}

func engineJS() (template.JS, error) {
	src, err := templateFS.ReadFile("templates/engine.js")
	if err != nil {
		return "", fmt.Errorf("read engine script: %w", err)
	}
	return template.JS(src), nil
}

func (r *playerRenderer) playbackConfig() template.JS {
	return template.JS(fmt.Sprintf("{baseInterval: %d, compressedTarget: %d}",
		r.opts.BaseInterval.Milliseconds(), r.opts.CompressedTarget.Milliseconds()))
}

func (r *playerRenderer) Render(w io.Writer, view model.View) error {
	js, err := engineJS()
	if err != nil {
		return err
	}

	events := view.Events()
	sessionStart := firstTimestamp(events)

	var blocks []string
	userNumber := 0
	for _, ev := range events {
		if !ev.HasContent() {
			continue
		}

		tsAttr := ""
		if !ev.Timestamp.IsZero() {
			tsAttr = fmt.Sprintf(` data-timestamp="%s"`, ev.Timestamp.UTC().Format(time.RFC3339))
		}
		label := timeLabel(ev.Timestamp, sessionStart)

		switch ev.Role {
		case model.RoleUser:
			userNumber++
			var parts []string
			parts = append(parts, fmt.Sprintf(`<div class="role-label">User (%d)</div>`, userNumber))
			if text := strings.TrimSpace(ev.PlainText()); text != "" {
				parts = append(parts, fmt.Sprintf(`<div class="message-body">%s</div>`, markupToHTML(text, r.opts.ANSI)))
			}
			if len(parts) == 1 {
				continue
			}
			blocks = append(blocks, playerBlock("user", tsAttr, label, parts))

		case model.RoleAssistant:
			text := strings.TrimSpace(ev.PlainText())
			if text == "" {
				continue
			}
			parts := []string{
				`<div class="role-label">Assistant</div>`,
				fmt.Sprintf(`<div class="message-body">%s</div>`, markupToHTML(text, r.opts.ANSI)),
			}
			blocks = append(blocks, playerBlock("assistant", tsAttr, label, parts))

		case model.RoleTool:
			if ev.Tool == nil {
				continue
			}
			if use := formatToolHTML(ev.Tool); use != "" {
				parts := []string{fmt.Sprintf(`<div class="tool-section">%s</div>`, use)}
				blocks = append(blocks, playerBlock("assistant", tsAttr, label, parts))
			}
			if result := toolResultText(ev.Tool); result != "" {
				parts := []string{fmt.Sprintf(`<details><summary>%s</summary><pre>%s</pre></details>`,
					resultSummary(ev.Tool), resultHTML(result, r.opts.ANSI))}
				blocks = append(blocks, playerBlock("assistant", tsAttr, label, parts))
			}
		}
	}

	page := playerPage{
		Theme:    themeCSS(r.opts.Theme),
		Messages: template.HTML(strings.Join(blocks, "\n")),
		EngineJS: js,
		Config:   r.playbackConfig(),
	}
	return pageTemplates.ExecuteTemplate(w, "player.html.tmpl", page)
}

func playerBlock(wrapper, tsAttr, label string, parts []string) string {
	return fmt.Sprintf("<div class=\"message %s\"%s>\n%s<div class=\"message-content\">\n%s\n</div>\n</div>",
		wrapper, tsAttr, label, strings.Join(parts, "\n"))
}

func firstTimestamp(events []model.Event) time.Time {
	for _, ev := range events {
		if !ev.Timestamp.IsZero() {
			return ev.Timestamp
		}
	}
	return time.Time{}
}

// timeLabel renders the absolute clock time and, when the session start
// is known, the offset from it.
func timeLabel(ts, sessionStart time.Time) string {
	if ts.IsZero() {
		return ""
	}
	absolute := ts.UTC().Format("15:04:05")

	relative := ""
	if !sessionStart.IsZero() {
		diff := ts.Sub(sessionStart)
		total := int(diff.Seconds())
		if total >= 0 {
			hours := total / 3600
			minutes := (total % 3600) / 60
			seconds := total % 60
			if hours > 0 {
				relative = fmt.Sprintf("+%d:%02d:%02d", hours, minutes, seconds)
			} else {
				relative = fmt.Sprintf("+%d:%02d", minutes, seconds)
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<div class=\"message-time\" title=\"%s\">\n", html.EscapeString(absolute))
	fmt.Fprintf(&b, "  <div class=\"message-time-absolute\">%s</div>\n", absolute)
	if relative != "" {
		fmt.Fprintf(&b, "  <div class=\"message-time-relative\">%s</div>\n", relative)
	}
	b.WriteString("</div>\n")
	return b.String()
}
