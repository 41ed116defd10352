package ranges

import (
	"errors"
	"testing"
)

func TestParse_Normalizes(t *testing.T) {
	set, err := Parse("8-10,1-3,2-5", 20)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	want := []Interval{{1, 5}, {8, 10}}
	got := set.Intervals()
	if len(got) != len(want) {
		t.Fatalf("unexpected intervals: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("interval %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParse_MergesAdjacent(t *testing.T) {
	set, err := Parse("1-3,4-6", 10)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := set.String(); got != "1-6" {
		t.Fatalf("adjacent intervals not merged: %s", got)
	}
}

func TestParse_OpenEnds(t *testing.T) {
	set, err := Parse("-3,7-", 10)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := set.String(); got != "1-3,7-10" {
		t.Fatalf("unexpected set: %s", got)
	}
}

func TestParse_ClipsOutOfRange(t *testing.T) {
	set, err := Parse("0-100", 10)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := set.String(); got != "1-10" {
		t.Fatalf("unexpected set: %s", got)
	}
}

func TestParse_StartBeyondBoundIsEmpty(t *testing.T) {
	set, err := Parse("100-", 10)
	if err != nil {
		t.Fatalf("start beyond bound must clip, not fail: %v", err)
	}
	if !set.Empty() {
		t.Fatalf("expected empty set, got %s", set)
	}
	if set.Count() != 0 {
		t.Fatalf("empty set must count zero, got %d", set.Count())
	}
}

func TestParse_ReversedBoundsFatal(t *testing.T) {
	_, err := Parse("5-3", 10)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestParse_NonNumericFatal(t *testing.T) {
	for _, expr := range []string{"abc", "1-abc", "x-5", "1,abc"} {
		_, err := Parse(expr, 10)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expr %q: expected ValidationError, got %v", expr, err)
		}
	}
}

func TestParse_EmptySelectsAll(t *testing.T) {
	set, err := Parse("", 4)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := set.Count(); got != 4 {
		t.Fatalf("empty expression should select all: %d", got)
	}
}

func TestParse_SingleIndexAndContains(t *testing.T) {
	set, err := Parse("2,4-5", 10)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	for idx, want := range map[int]bool{1: false, 2: true, 3: false, 4: true, 5: true, 6: false} {
		if got := set.Contains(idx); got != want {
			t.Fatalf("Contains(%d) = %v, want %v", idx, got, want)
		}
	}
	indices := set.Indices()
	if len(indices) != 3 || indices[0] != 2 || indices[1] != 4 || indices[2] != 5 {
		t.Fatalf("unexpected indices: %v", indices)
	}
}

func TestParse_CanonicalFormRoundTrips(t *testing.T) {
	exprs := []string{"1-3,2-7,9", "5", "-2,4-", "3-3,1"}
	for _, expr := range exprs {
		set, err := Parse(expr, 12)
		if err != nil {
			t.Fatalf("expr %q: %v", expr, err)
		}
		again, err := Parse(set.String(), 12)
		if err != nil {
			t.Fatalf("re-parse %q: %v", set.String(), err)
		}
		if again.String() != set.String() {
			t.Fatalf("canonical form not idempotent: %q -> %q", set.String(), again.String())
		}
	}
}

func TestParse_ZeroBound(t *testing.T) {
	set, err := Parse("1-5", 0)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !set.Empty() {
		t.Fatalf("zero-bound parse should be empty, got %s", set)
	}
}
