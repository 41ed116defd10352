package render

import (
	"fmt"
	"html"
	"strings"

	"logreplay/internal/ansi"
)

// markupToHTML converts lightweight Markdown (code fences, pipe tables,
// hash headings, inline strong and code) into HTML. ANSI sequences in the
// input are stripped or folded into colored spans per mode.
func markupToHTML(text string, mode ansi.Mode) string {
	lines := strings.Split(text, "\n")
	var out []string
	inCode := false

	for i := 0; i < len(lines); {
		line := lines[i]

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inCode {
				out = append(out, "</code></pre>")
			} else {
				out = append(out, "<pre><code>")
			}
			inCode = !inCode
			i++
			continue
		}
		if inCode {
			out = append(out, escapeLine(line, mode))
			i++
			continue
		}

		if i+1 < len(lines) && strings.Contains(line, "|") && isTableSeparator(lines[i+1]) {
			headers := splitTableLine(line)
			i += 2
			var rows [][]string
			for i < len(lines) && strings.Contains(lines[i], "|") && strings.TrimSpace(lines[i]) != "" {
				rows = append(rows, splitTableLine(lines[i]))
				i++
			}
			out = append(out, tableToHTML(headers, rows, mode))
			continue
		}

		formatted := inlineFormat(escapeLine(line, mode))
		trimmed := strings.TrimSpace(formatted)
		switch {
		case strings.HasPrefix(trimmed, "# "):
			out = append(out, fmt.Sprintf("<h2>%s</h2>", strings.TrimSpace(trimmed[2:])))
		case strings.HasPrefix(trimmed, "## "):
			out = append(out, fmt.Sprintf("<h3>%s</h3>", strings.TrimSpace(trimmed[3:])))
		case strings.HasPrefix(trimmed, "### "):
			out = append(out, fmt.Sprintf("<h4>%s</h4>", strings.TrimSpace(trimmed[4:])))
		default:
			out = append(out, fmt.Sprintf("<p>%s</p>", formatted))
		}
		i++
	}

	if inCode {
		out = append(out, "</code></pre>")
	}
	return strings.Join(out, "\n")
}

func escapeLine(line string, mode ansi.Mode) string {
	if mode == ansi.ModeColor {
		return ansi.ToHTML(line)
	}
	return html.EscapeString(ansi.Strip(line))
}

// inlineFormat wraps **strong** and `code` runs. It only rewrites a line
// when a delimiter pair is closed, leaving stray markers untouched.
func inlineFormat(escaped string) string {
	escaped = wrapPairs(escaped, "**", "strong")
	return wrapPairs(escaped, "`", "code")
}

func wrapPairs(s, delim, tag string) string {
	parts := strings.Split(s, delim)
	if len(parts) < 3 {
		return s
	}
	var b strings.Builder
	for i, part := range parts {
		if i%2 == 1 && i != len(parts)-1 {
			b.WriteString("<" + tag + ">" + part + "</" + tag + ">")
		} else {
			if i%2 == 1 {
				b.WriteString(delim)
			}
			b.WriteString(part)
		}
	}
	return b.String()
}

func splitTableLine(line string) []string {
	trimmed := strings.Trim(strings.TrimSpace(line), "|")
	cells := strings.Split(trimmed, "|")
	for i, cell := range cells {
		cells[i] = strings.TrimSpace(cell)
	}
	return cells
}

func isTableSeparator(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.Contains(trimmed, "|") {
		return false
	}
	for _, ch := range trimmed {
		switch ch {
		case '|', ':', '-', ' ':
		default:
			return false
		}
	}
	return true
}

func tableToHTML(headers []string, rows [][]string, mode ansi.Mode) string {
	var b strings.Builder
	b.WriteString("<table>\n<thead><tr>")
	for _, h := range headers {
		b.WriteString("<th>" + inlineFormat(escapeLine(h, mode)) + "</th>")
	}
	b.WriteString("</tr></thead>\n<tbody>\n")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>" + inlineFormat(escapeLine(cell, mode)) + "</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}
