package ansi

import "testing"

func TestStripRemovesSGR(t *testing.T) {
	got := Strip("\x1b[1;31mred\x1b[0m plain")
	if got != "red plain" {
		t.Fatalf("got %q", got)
	}
}

func TestStripRemovesCSIAndOSC(t *testing.T) {
	in := "\x1b[2K\x1b[1Gdone \x1b]0;title\x07here \x1b]8;;http://x\x1b\\link"
	got := Strip(in)
	if got != "done here link" {
		t.Fatalf("got %q", got)
	}
}

func TestStripCarriageReturnOverwrite(t *testing.T) {
	got := Strip("progress 10%\rprogress 50%\rprogress 100%\nnext line")
	if got != "progress 100%\nnext line" {
		t.Fatalf("got %q", got)
	}
}

func TestStripTrailingCarriageReturn(t *testing.T) {
	// A bare CR with nothing after it leaves the prior text visible,
	// including the CRLF line-ending case.
	got := Strip("kept\r\nother")
	if got != "kept\nother" {
		t.Fatalf("got %q", got)
	}
}

func TestStripUnterminatedSequenceStaysLiteral(t *testing.T) {
	got := Strip("before \x1b[31")
	if got != "before \x1b[31" {
		t.Fatalf("got %q", got)
	}
	got = Strip("lone \x1b")
	if got != "lone \x1b" {
		t.Fatalf("got %q", got)
	}
}

func TestStripSingleCharEscape(t *testing.T) {
	got := Strip("a\x1b=b")
	if got != "ab" {
		t.Fatalf("got %q", got)
	}
}

func TestToHTMLColorSpans(t *testing.T) {
	got := ToHTML("\x1b[31merror\x1b[0m ok")
	want := `<span style="color:#e06c75">error</span> ok`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToHTMLBoldAndBackground(t *testing.T) {
	got := ToHTML("\x1b[1;97;41mwarn\x1b[0m")
	want := `<span style="color:#ffffff;background:#e06c75;font-weight:bold">warn</span>`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToHTMLEscapesMarkup(t *testing.T) {
	got := ToHTML("\x1b[32m<b>\x1b[0m")
	want := `<span style="color:#98c379">&lt;b&gt;</span>`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToHTMLResetWithoutParams(t *testing.T) {
	got := ToHTML("\x1b[33mx\x1b[my")
	want := `<span style="color:#e5c07b">x</span>y`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToHTMLIgnoresExtendedColorArgs(t *testing.T) {
	// 38;5;196 must not be misread as codes 5 and 196.
	got := ToHTML("\x1b[38;5;196mx\x1b[0m")
	if got != "x" {
		t.Fatalf("got %q", got)
	}
}

func TestToHTMLDropsCursorMovement(t *testing.T) {
	got := ToHTML("\x1b[2J\x1b[Hclear")
	if got != "clear" {
		t.Fatalf("got %q", got)
	}
}

func TestParseMode(t *testing.T) {
	if _, err := ParseMode("strip"); err != nil {
		t.Fatalf("strip: %v", err)
	}
	if _, err := ParseMode("color"); err != nil {
		t.Fatalf("color: %v", err)
	}
	if _, err := ParseMode("rainbow"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
