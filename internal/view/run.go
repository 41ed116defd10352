// Package view renders sessions as terminal transcripts.
package view

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"logreplay/internal/ansi"
	"logreplay/internal/model"
)

const (
	ansiReset     = "\x1b[0m"
	ansiBoldWhite = "\x1b[1;97m"
	ansiTimestamp = "\x1b[38;5;245m"
	ansiSeparator = "\x1b[38;5;240m"
	ansiAssistant = "\x1b[38;5;44m"
	ansiUser      = "\x1b[38;5;220m"
	ansiTool      = "\x1b[38;5;207m"
)

// Options controls how a session view is printed.
type Options struct {
	// Format selects the layout: "text" or "chat".
	Format string
	// Wrap overrides the detected terminal width when positive.
	Wrap int
	// MaxEvents keeps only the trailing N events when positive.
	MaxEvents int

	ForceColor   bool
	ForceNoColor bool
	NoPager      bool

	// Out receives the rendered transcript.
	Out io.Writer
	// OutFile is set when Out is backed by a file, enabling terminal
	// detection for color and pager decisions.
	OutFile *os.File
}

// Run prints the events of view to opts.Out in the requested format.
func Run(v model.View, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
		opts.OutFile = os.Stdout
	}

	events := v.Events()
	if opts.MaxEvents > 0 && len(events) > opts.MaxEvents {
		ring := newEventRing(opts.MaxEvents)
		for _, ev := range events {
			ring.push(ev)
		}
		events = ring.slice()
	}

	useColor := resolveColorChoice(opts)
	width := determineWidth(opts.OutFile, opts.Wrap)

	var lines []string
	switch opts.Format {
	case "", "text":
		lines = renderTextTranscript(events, useColor)
	case "chat":
		lines = renderChatTranscript(events, width, useColor)
	default:
		return fmt.Errorf("unknown view format %q", opts.Format)
	}

	if !opts.NoPager && shouldPage(opts.OutFile, len(lines)) {
		if err := pipeThroughPager(lines, useColor); err == nil {
			return nil
		}
		// fall back to direct output when the pager cannot start
	}
	return writeLines(opts.Out, lines)
}

func renderTextTranscript(events []model.Event, useColor bool) []string {
	lines := make([]string, 0, len(events)*4)
	for i, ev := range events {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, renderTextEvent(ev, useColor)...)
	}
	return lines
}

func renderTextEvent(ev model.Event, useColor bool) []string {
	ts := "-"
	if !ev.Timestamp.IsZero() {
		ts = ev.Timestamp.Format(time.RFC3339)
	}
	header := fmt.Sprintf("[#%03d] %s | %s",
		ev.Index,
		colorize(useColor, roleColor(ev.Role), roleLabel(ev)),
		colorize(useColor, ansiTimestamp, ts),
	)

	lines := []string{header, colorize(useColor, ansiSeparator, strings.Repeat("-", 40))}
	prefix := colorize(useColor, ansiSeparator, "| ")
	for _, body := range eventLines(ev) {
		lines = append(lines, prefix+body)
	}
	return lines
}

// eventLines flattens an event into plain display lines with escape
// sequences removed.
func eventLines(ev model.Event) []string {
	var lines []string
	if ev.Tool != nil {
		lines = append(lines, toolSummary(ev.Tool))
		if ev.Tool.Result != nil {
			text := ansi.Strip(strings.TrimRight(*ev.Tool.Result, "\n"))
			lines = append(lines, splitLines(text)...)
		}
		return lines
	}
	for _, block := range ev.Content {
		switch block.Type {
		case model.BlockText, model.BlockCode:
			lines = append(lines, splitLines(ansi.Strip(block.Text))...)
		case model.BlockTable:
			for _, row := range block.Rows {
				lines = append(lines, strings.Join(row, " | "))
			}
		case model.BlockImage:
			lines = append(lines, "[image] "+block.URL)
		}
	}
	return lines
}

func toolSummary(tool *model.ToolInvocation) string {
	input := strings.TrimSpace(string(tool.Input))
	if len(input) > 120 {
		input = input[:120] + "..."
	}
	name := tool.Name
	if name == "" {
		name = "Unknown"
	}
	status := ""
	switch tool.Status {
	case model.StatusPending:
		status = " (pending)"
	case model.StatusError:
		status = " (error)"
	case model.StatusUnmatched:
		status = " (unmatched)"
	}
	if input == "" || input == "{}" || input == "null" {
		return name + status
	}
	return fmt.Sprintf("%s %s%s", name, input, status)
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func roleLabel(ev model.Event) string {
	if ev.Role == model.RoleTool && ev.Tool != nil && ev.Tool.Name != "" {
		return "tool: " + ev.Tool.Name
	}
	return string(ev.Role)
}

func roleColor(role model.Role) string {
	switch role {
	case model.RoleAssistant:
		return ansiAssistant
	case model.RoleUser:
		return ansiUser
	case model.RoleTool, model.RoleSystem:
		return ansiTool
	default:
		return ansiBoldWhite
	}
}

func colorize(enabled bool, code, text string) string {
	if !enabled || code == "" {
		return text
	}
	return code + text + ansiReset
}

// eventRing keeps the most recent events when a tail limit is set.
type eventRing struct {
	data   []model.Event
	start  int
	length int
}

func newEventRing(capacity int) *eventRing {
	return &eventRing{data: make([]model.Event, capacity)}
}

func (r *eventRing) push(ev model.Event) {
	if r.length < len(r.data) {
		r.data[(r.start+r.length)%len(r.data)] = ev
		r.length++
		return
	}
	r.data[r.start] = ev
	r.start = (r.start + 1) % len(r.data)
}

func (r *eventRing) slice() []model.Event {
	out := make([]model.Event, 0, r.length)
	for i := 0; i < r.length; i++ {
		out = append(out, r.data[(r.start+i)%len(r.data)])
	}
	return out
}

func determineWidth(out *os.File, wrap int) int {
	if wrap > 0 {
		return wrap
	}
	if out != nil {
		if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

func resolveColorChoice(opts Options) bool {
	if opts.ForceColor {
		return true
	}
	if opts.ForceNoColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminalFile(opts.OutFile)
}

func isTerminalFile(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func shouldPage(out *os.File, lineCount int) bool {
	if !isTerminalFile(out) {
		return false
	}
	_, h, err := term.GetSize(int(out.Fd()))
	if err != nil || h <= 0 {
		return lineCount > 40
	}
	return lineCount > h
}

func pipeThroughPager(lines []string, colorEnabled bool) error {
	pager := os.Getenv("PAGER")
	args := []string{}
	if pager == "" {
		pager = "less"
		if colorEnabled {
			args = append(args, "-R")
		}
	}
	cmd := exec.Command(pager, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	go func() {
		w := bufio.NewWriter(stdin)
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
		w.Flush()
		stdin.Close()
	}()

	return cmd.Wait()
}

func writeLines(out io.Writer, lines []string) error {
	w := bufio.NewWriter(out)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return w.Flush()
}
