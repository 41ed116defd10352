package render

import (
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"

	"logreplay/internal/ansi"
	"logreplay/internal/model"
)

//go:embed templates
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// htmlRenderer writes a static chat-style transcript with one of the two
// fixed themes.
type htmlRenderer struct {
	opts Options
}

type staticPage struct {
	Theme    template.CSS
	Messages template.HTML
}

func (r *htmlRenderer) Render(w io.Writer, view model.View) error {
	var blocks []string
	userNumber := 0

	for _, ev := range view.Events() {
		if !ev.HasContent() {
			continue
		}
		block, bumped := messageBlock(ev, userNumber+1, r.opts.ANSI)
		if block == "" {
			continue
		}
		if bumped {
			userNumber++
		}
		blocks = append(blocks, block)
	}

	page := staticPage{
		Theme:    themeCSS(r.opts.Theme),
		Messages: template.HTML(strings.Join(blocks, "\n")),
	}
	return pageTemplates.ExecuteTemplate(w, "static.html.tmpl", page)
}

// messageBlock renders one event as a chat bubble. Tool events attach to
// the assistant side. The second return reports whether a user heading
// number was consumed.
func messageBlock(ev model.Event, nextUserNumber int, mode ansi.Mode) (string, bool) {
	var parts []string
	wrapper := "assistant"

	switch ev.Role {
	case model.RoleUser:
		wrapper = "user"
		parts = append(parts, fmt.Sprintf(`<div class="role-label">User (%d)</div>`, nextUserNumber))
	case model.RoleAssistant:
		parts = append(parts, `<div class="role-label">Assistant</div>`)
	case model.RoleTool:
	default:
		return "", false
	}

	if text := strings.TrimSpace(ev.PlainText()); text != "" {
		parts = append(parts, fmt.Sprintf(`<div class="message-body">%s</div>`, markupToHTML(text, mode)))
	}
	for _, block := range ev.Content {
		switch block.Type {
		case model.BlockCode:
			parts = append(parts, fmt.Sprintf("<pre><code>%s</code></pre>", html.EscapeString(block.Text)))
		case model.BlockTable:
			parts = append(parts, rowsToHTML(block.Rows, mode))
		case model.BlockImage:
			parts = append(parts, fmt.Sprintf(`<img src="%s" alt="">`, html.EscapeString(block.URL)))
		}
	}

	if ev.Tool != nil {
		if use := formatToolHTML(ev.Tool); use != "" {
			parts = append(parts, fmt.Sprintf(`<div class="tool-section">%s</div>`, use))
		}
		if result := toolResultText(ev.Tool); result != "" {
			parts = append(parts, fmt.Sprintf(`<details><summary>%s</summary><pre>%s</pre></details>`,
				resultSummary(ev.Tool), resultHTML(result, mode)))
		}
	}

	if len(parts) == 0 || (ev.Role == model.RoleUser && len(parts) == 1) {
		return "", false
	}
	block := fmt.Sprintf("<div class=\"message %s\">\n%s\n</div>", wrapper, strings.Join(parts, "\n"))
	return block, ev.Role == model.RoleUser
}

// resultHTML truncates then escapes or colorizes a tool result body.
// The cap is applied before conversion so it counts content, not markup.
func resultHTML(result string, mode ansi.Mode) string {
	if mode == ansi.ModeColor {
		return ansi.ToHTML(truncateResult(result))
	}
	return html.EscapeString(truncateResult(ansi.Strip(result)))
}

func rowsToHTML(rows [][]string, mode ansi.Mode) string {
	if len(rows) == 0 {
		return ""
	}
	return tableToHTML(rows[0], rows[1:], mode)
}
