package render

import (
	"fmt"
	"html"
	"html/template"
	"io"
	"strings"
	"time"

	"logreplay/internal/ansi"
	"logreplay/internal/model"
)

// terminalRenderer writes the terminal-style replay document: a dark
// console look with prompt markers, tool spinners and the embedded
// playback engine.
type terminalRenderer struct {
	opts Options
}

type terminalPage struct {
	Source   string
	Messages template.HTML
	EngineJS template.JS
	Config   template.JS
}

func (r *terminalRenderer) Render(w io.Writer, view model.View) error {
	js, err := engineJS()
	if err != nil {
		return err
	}

	var blocks []string
	for _, ev := range view.Events() {
		if !ev.HasContent() {
			continue
		}

		tsAttr := ""
		if !ev.Timestamp.IsZero() {
			tsAttr = fmt.Sprintf(` data-timestamp="%s"`, ev.Timestamp.UTC().Format(time.RFC3339))
		}

		switch ev.Role {
		case model.RoleUser:
			text := strings.TrimSpace(ev.PlainText())
			if text == "" {
				continue
			}
			blocks = append(blocks, fmt.Sprintf(
				`<div class="t-msg t-user"%s><div class="t-prompt">%s</div><div class="t-user-text">%s</div></div>`,
				tsAttr, "❯", r.inlineText(text)))

		case model.RoleAssistant:
			text := strings.TrimSpace(ev.PlainText())
			if text == "" {
				continue
			}
			blocks = append(blocks, fmt.Sprintf(
				`<div class="t-msg t-assistant"%s><div class="t-response">%s</div></div>`,
				tsAttr, markupToHTML(text, r.opts.ANSI)))

		case model.RoleTool:
			if ev.Tool == nil {
				continue
			}
			if block := toolBlock(ev.Tool, tsAttr); block != "" {
				blocks = append(blocks, block)
			}
			if block := r.resultBlock(ev.Tool, tsAttr); block != "" {
				blocks = append(blocks, block)
			}
		}
	}

	page := terminalPage{
		Source:   r.opts.Source,
		Messages: template.HTML(strings.Join(blocks, "\n")),
		EngineJS: js,
		Config:   (&playerRenderer{opts: r.opts}).playbackConfig(),
	}
	return pageTemplates.ExecuteTemplate(w, "terminal.html.tmpl", page)
}

func (r *terminalRenderer) inlineText(text string) string {
	if r.opts.ANSI == ansi.ModeColor {
		return ansi.ToHTML(text)
	}
	return html.EscapeString(ansi.Strip(text))
}

func toolBlock(tool *model.ToolInvocation, tsAttr string) string {
	header, body := formatToolTerminal(tool)
	if header == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="t-msg t-tool"%s data-tool="%s">`, tsAttr, html.EscapeString(strings.ToLower(tool.Name)))
	fmt.Fprintf(&b, `<div class="t-tool-header"><span class="t-spinner"></span>%s</div>`, header)
	if body != "" {
		fmt.Fprintf(&b, `<div class="t-tool-body">%s</div>`, body)
	}
	b.WriteString("</div>")
	return b.String()
}

func (r *terminalRenderer) resultBlock(tool *model.ToolInvocation, tsAttr string) string {
	result := toolResultText(tool)
	if result == "" {
		return ""
	}
	body := resultHTML(result, r.opts.ANSI)
	return fmt.Sprintf(
		`<div class="t-msg t-tool"%s data-tool="result"><div class="t-tool-header"><span class="t-spinner"></span>%s Result</div><div class="t-tool-body"><pre class="t-cmd">%s</pre></div></div>`,
		tsAttr, "\U0001F4DD", body)
}
