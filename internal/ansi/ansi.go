// Package ansi normalizes terminal escape sequences embedded in tool
// output. Strip removes all control sequences and applies carriage-return
// overwrite semantics; ToHTML folds SGR color runs into styled spans and
// discards the cursor-movement sequences that have no meaning outside a
// terminal grid.
package ansi

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// Mode selects how escape sequences in tool output are handled.
type Mode string

const (
	ModeStrip Mode = "strip"
	ModeColor Mode = "color"
)

// ParseMode validates a mode flag value.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeStrip, ModeColor:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("unsupported ansi mode: %s", value)
	}
}

const esc = '\x1b'

// token is one lexed unit of input: either literal text or a complete
// escape sequence. Unterminated sequences are never produced; their bytes
// stay literal text.
type token struct {
	text  string
	isSGR bool   // complete CSI sequence with final byte 'm'
	isSeq bool   // any complete escape sequence
	parms string // SGR parameter string, e.g. "1;31"
}

// tokenize splits s into literal text and complete escape sequences. An
// unterminated sequence is returned as literal text from its ESC onward.
func tokenize(s string) []token {
	var tokens []token
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, token{text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(s); {
		if s[i] != esc {
			literal.WriteByte(s[i])
			i++
			continue
		}

		seq, ok := lexSequence(s[i:])
		if !ok {
			// Unterminated: everything from the ESC is literal.
			literal.WriteString(s[i:])
			break
		}

		flush()
		t := token{text: seq, isSeq: true}
		if len(seq) > 2 && seq[1] == '[' && seq[len(seq)-1] == 'm' {
			t.isSGR = true
			t.parms = seq[2 : len(seq)-1]
		}
		tokens = append(tokens, t)
		i += len(seq)
	}
	flush()
	return tokens
}

// lexSequence reads one escape sequence starting at s[0] == ESC.
func lexSequence(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	switch s[1] {
	case '[': // CSI: parameters, intermediates, one final byte
		for i := 2; i < len(s); i++ {
			c := s[i]
			if c >= '0' && c <= '9' || c == ';' || c == '?' || c == ' ' || c >= '!' && c <= '/' {
				continue
			}
			if c >= '@' && c <= '~' {
				return s[:i+1], true
			}
			return "", false
		}
		return "", false
	case ']': // OSC: terminated by BEL or ST
		for i := 2; i < len(s); i++ {
			if s[i] == '\x07' {
				return s[:i+1], true
			}
			if s[i] == esc && i+1 < len(s) && s[i+1] == '\\' {
				return s[:i+2], true
			}
		}
		return "", false
	default:
		if s[1] >= '@' && s[1] <= '_' {
			return s[:2], true
		}
		return "", false
	}
}

// Strip removes every escape sequence and honors carriage-return
// overwrite: text after a bare CR replaces the preceding text on the same
// visual line.
func Strip(s string) string {
	var plain strings.Builder
	for _, t := range tokenize(s) {
		if t.isSeq {
			continue
		}
		plain.WriteString(t.text)
	}
	return applyCarriageReturns(plain.String())
}

func applyCarriageReturns(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "\r") {
			continue
		}
		segments := strings.Split(line, "\r")
		// The last non-empty segment is what the terminal would show;
		// a trailing bare CR leaves the prior text visible.
		kept := ""
		for _, seg := range segments {
			if seg != "" {
				kept = seg
			}
		}
		lines[i] = kept
	}
	return strings.Join(lines, "\n")
}

// One Dark palette, matching the themes used by the HTML renderers.
var fgColors = map[int]string{
	30: "#000000", 31: "#e06c75", 32: "#98c379", 33: "#e5c07b",
	34: "#61afef", 35: "#c678dd", 36: "#56b6c2", 37: "#dcdfe4",
	90: "#5c6370", 91: "#e06c75", 92: "#98c379", 93: "#e5c07b",
	94: "#61afef", 95: "#c678dd", 96: "#56b6c2", 97: "#ffffff",
}

var bgColors = map[int]string{
	40: "#000000", 41: "#e06c75", 42: "#98c379", 43: "#e5c07b",
	44: "#61afef", 45: "#c678dd", 46: "#56b6c2", 47: "#dcdfe4",
	100: "#5c6370", 101: "#e06c75", 102: "#98c379", 103: "#e5c07b",
	104: "#61afef", 105: "#c678dd", 106: "#56b6c2", 107: "#ffffff",
}

type sgrState struct {
	fg   string
	bg   string
	bold bool
}

func (st sgrState) styled() bool { return st.fg != "" || st.bg != "" || st.bold }

func (st sgrState) style() string {
	var parts []string
	if st.fg != "" {
		parts = append(parts, "color:"+st.fg)
	}
	if st.bg != "" {
		parts = append(parts, "background:"+st.bg)
	}
	if st.bold {
		parts = append(parts, "font-weight:bold")
	}
	return strings.Join(parts, ";")
}

func (st *sgrState) apply(parms string) {
	if parms == "" {
		*st = sgrState{}
		return
	}
	for _, field := range strings.Split(parms, ";") {
		if field == "" {
			continue
		}
		code, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		switch {
		case code == 0:
			*st = sgrState{}
		case code == 1:
			st.bold = true
		case code == 22:
			st.bold = false
		case code == 39:
			st.fg = ""
		case code == 49:
			st.bg = ""
		case code == 38 || code == 48:
			// Extended color forms consume the rest of the sequence;
			// not mapped, so stop before misreading their arguments.
			return
		default:
			if c, ok := fgColors[code]; ok {
				st.fg = c
			} else if c, ok := bgColors[code]; ok {
				st.bg = c
			}
		}
	}
}

// ToHTML converts SGR-styled text into escaped HTML with styled spans.
// Non-SGR control sequences are discarded; unterminated sequences remain
// literal text.
func ToHTML(s string) string {
	var out strings.Builder
	var state sgrState
	for _, t := range tokenize(s) {
		if t.isSGR {
			state.apply(t.parms)
			continue
		}
		if t.isSeq {
			continue
		}
		escaped := html.EscapeString(t.text)
		if state.styled() {
			out.WriteString(`<span style="` + state.style() + `">`)
			out.WriteString(escaped)
			out.WriteString("</span>")
		} else {
			out.WriteString(escaped)
		}
	}
	return out.String()
}
