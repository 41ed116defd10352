package render

import (
	"fmt"
	"io"
	"strings"

	"logreplay/internal/ansi"
	"logreplay/internal/model"
)

// markdownRenderer writes a plain transcript: numbered user headings,
// assistant headings, tool summaries and collapsible result sections.
type markdownRenderer struct {
	opts Options
}

func (r *markdownRenderer) Render(w io.Writer, view model.View) error {
	var b strings.Builder
	b.WriteString("# Session Transcript\n\n")
	if r.opts.Source != "" {
		fmt.Fprintf(&b, "Source: `%s`\n\n", r.opts.Source)
	}
	b.WriteString("---\n\n")

	userNumber := 0
	for _, ev := range view.Events() {
		if !ev.HasContent() {
			continue
		}

		switch ev.Role {
		case model.RoleUser:
			userNumber++
			fmt.Fprintf(&b, "## User (%d)\n\n", userNumber)
			writeMarkdownText(&b, ev)

		case model.RoleAssistant:
			b.WriteString("## Assistant\n\n")
			writeMarkdownText(&b, ev)

		case model.RoleTool:
			if ev.Tool == nil {
				continue
			}
			if use := formatToolMarkdown(ev.Tool); use != "" {
				b.WriteString(use + "\n\n")
			}
			if result := toolResultText(ev.Tool); result != "" {
				body := truncateResult(ansi.Strip(result))
				fmt.Fprintf(&b, "<details><summary>%s</summary>\n\n```\n%s\n```\n\n</details>\n\n", resultSummary(ev.Tool), body)
			}

		default:
			continue
		}
	}

	b.WriteString("---\n\n*Converted from session transcript.*\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdownText(b *strings.Builder, ev model.Event) {
	text := strings.TrimSpace(ansi.Strip(ev.PlainText()))
	if text != "" {
		b.WriteString(text + "\n\n")
	}
	for _, block := range ev.Content {
		switch block.Type {
		case model.BlockCode:
			fmt.Fprintf(b, "```%s\n%s\n```\n\n", block.Language, block.Text)
		case model.BlockTable:
			writeMarkdownTable(b, block.Rows)
		case model.BlockImage:
			fmt.Fprintf(b, "![image](%s)\n\n", block.URL)
		}
	}
}

func writeMarkdownTable(b *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(rows[0], " | "))
	b.WriteString("|" + strings.Repeat(" --- |", len(rows[0])) + "\n")
	for _, row := range rows[1:] {
		fmt.Fprintf(b, "| %s |\n", strings.Join(row, " | "))
	}
	b.WriteString("\n")
}

func resultSummary(tool *model.ToolInvocation) string {
	switch tool.Status {
	case model.StatusError:
		return "Tool Result (error)"
	case model.StatusUnmatched:
		return "Tool Result (unmatched)"
	default:
		return "Tool Result"
	}
}
