package render

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"logreplay/internal/model"
)

// resultLimit caps inlined tool output in every format.
const resultLimit = 500

// toolInput is the decoded input payload of an invocation. Unknown or
// unparseable payloads decode to an empty map.
type toolInput map[string]any

func decodeToolInput(raw json.RawMessage) toolInput {
	if len(raw) == 0 {
		return toolInput{}
	}
	var m toolInput
	if err := json.Unmarshal(raw, &m); err != nil {
		return toolInput{}
	}
	return m
}

func (in toolInput) str(key string) string {
	s, _ := in[key].(string)
	return s
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// clip caps s at n bytes, backing up to a rune boundary.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// truncateResult caps a result body, marking the cut.
func truncateResult(s string) string {
	if len(s) <= resultLimit {
		return s
	}
	return clip(s, resultLimit) + "\n... (truncated)"
}

// formatToolMarkdown renders one invocation header as Markdown.
func formatToolMarkdown(tool *model.ToolInvocation) string {
	in := decodeToolInput(tool.Input)
	switch tool.Name {
	case "Read":
		return fmt.Sprintf("**Read**: `%s`", in.str("file_path"))
	case "Write":
		return fmt.Sprintf("**Write**: `%s` (%d lines)", in.str("file_path"), countLines(in.str("content")))
	case "Edit":
		return fmt.Sprintf("**Edit**: `%s`\n```diff\n- %s\n+ %s\n```",
			in.str("file_path"), clip(in.str("old_string"), 200), clip(in.str("new_string"), 200))
	case "Bash":
		return fmt.Sprintf("**Bash**:\n```bash\n%s\n```", in.str("command"))
	case "Grep":
		return fmt.Sprintf("**Grep**: `%s` in `%s`", in.str("pattern"), in.str("path"))
	case "Glob":
		return fmt.Sprintf("**Glob**: `%s`", in.str("pattern"))
	case "Task":
		return fmt.Sprintf("**Task**: %s", in.str("description"))
	case "":
		return ""
	default:
		return fmt.Sprintf("**%s**", tool.Name)
	}
}

// formatToolHTML renders one invocation header for the static and player
// documents.
func formatToolHTML(tool *model.ToolInvocation) string {
	in := decodeToolInput(tool.Input)
	esc := html.EscapeString
	switch tool.Name {
	case "Read":
		return fmt.Sprintf(`<span class="tool-name">Read</span>: <code>%s</code>`, esc(in.str("file_path")))
	case "Write":
		return fmt.Sprintf(`<span class="tool-name">Write</span>: <code>%s</code> (%d lines)`,
			esc(in.str("file_path")), countLines(in.str("content")))
	case "Edit":
		return fmt.Sprintf(`<span class="tool-name">Edit</span>: <code>%s</code><pre>- %s
+ %s</pre>`, esc(in.str("file_path")), esc(clip(in.str("old_string"), 200)), esc(clip(in.str("new_string"), 200)))
	case "Bash":
		return fmt.Sprintf(`<span class="tool-name">Bash</span>:<pre>%s</pre>`, esc(in.str("command")))
	case "Grep":
		return fmt.Sprintf(`<span class="tool-name">Grep</span>: <code>%s</code> in <code>%s</code>`,
			esc(in.str("pattern")), esc(in.str("path")))
	case "Glob":
		return fmt.Sprintf(`<span class="tool-name">Glob</span>: <code>%s</code>`, esc(in.str("pattern")))
	case "Task":
		return fmt.Sprintf(`<span class="tool-name">Task</span>: %s`, esc(in.str("description")))
	case "":
		return ""
	default:
		return fmt.Sprintf(`<span class="tool-name">%s</span>`, esc(tool.Name))
	}
}

var toolIcons = map[string]string{
	"Read":     "\U0001F4C4",
	"Write":    "✏️",
	"Edit":     "\U0001F527",
	"Bash":     "$",
	"Grep":     "\U0001F50D",
	"Glob":     "\U0001F50D",
	"Task":     "\U0001F916",
	"WebFetch": "\U0001F310",
}

// formatToolTerminal renders one invocation as a header line plus an
// optional body for the terminal-style document.
func formatToolTerminal(tool *model.ToolInvocation) (header, body string) {
	in := decodeToolInput(tool.Input)
	esc := html.EscapeString
	icon, ok := toolIcons[tool.Name]
	if !ok {
		icon = "•"
	}

	switch tool.Name {
	case "Read":
		header = fmt.Sprintf(`%s Read <span class="t-path">%s</span>`, icon, esc(in.str("file_path")))
	case "Write":
		header = fmt.Sprintf(`%s Write <span class="t-path">%s</span>`, icon, esc(in.str("file_path")))
		body = fmt.Sprintf(`<div class="t-dim">%d lines</div>`, countLines(in.str("content")))
	case "Edit":
		header = fmt.Sprintf(`%s Edit <span class="t-path">%s</span>`, icon, esc(in.str("file_path")))
		body = fmt.Sprintf(`<div class="t-diff"><span class="t-diff-del">- %s</span><span class="t-diff-add">+ %s</span></div>`,
			esc(clip(in.str("old_string"), 200)), esc(clip(in.str("new_string"), 200)))
	case "Bash":
		header = icon + " Bash"
		body = fmt.Sprintf(`<pre class="t-cmd">%s</pre>`, esc(in.str("command")))
	case "Grep":
		path := in.str("path")
		if path == "" {
			path = "."
		}
		header = fmt.Sprintf(`%s Grep <span class="t-str">&quot;%s&quot;</span> <span class="t-dim">in %s</span>`,
			icon, esc(in.str("pattern")), esc(path))
	case "Glob":
		header = fmt.Sprintf(`%s Glob <span class="t-str">%s</span>`, icon, esc(in.str("pattern")))
	case "Task":
		header = fmt.Sprintf(`%s Task <span class="t-str">%s</span>`, icon, esc(in.str("description")))
		if agent := in.str("subagent_type"); agent != "" {
			header += fmt.Sprintf(` <span class="t-dim">(%s)</span>`, esc(agent))
		}
	case "":
		header = ""
	default:
		header = fmt.Sprintf("%s %s", icon, esc(tool.Name))
	}
	return header, body
}

// toolResultText returns the trimmed result body of an invocation, empty
// when no result is attached.
func toolResultText(tool *model.ToolInvocation) string {
	if tool == nil || tool.Result == nil {
		return ""
	}
	return strings.TrimSpace(*tool.Result)
}
