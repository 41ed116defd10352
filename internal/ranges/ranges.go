// Package ranges parses 1-based event range expressions such as
// "1-50,53-" into normalized interval sets.
package ranges

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports a fatally malformed range expression. Unlike
// out-of-range bounds, which are clipped, these errors never produce a
// partial result.
type ValidationError struct {
	Expr     string
	Fragment string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid range %q: fragment %q: %s", e.Expr, e.Fragment, e.Reason)
}

// Interval is one inclusive 1-based index span.
type Interval struct {
	Start int
	End   int
}

// Set is a normalized range selection: disjoint intervals, sorted
// ascending, clipped to the session bounds.
type Set struct {
	intervals []Interval
	bound     int
}

// Parse evaluates expr against a session of n events. Fragments take the
// forms "a-b", "a-", "-b" or "a", comma separated. Bounds outside [1,n]
// are clipped; overlapping or adjacent intervals merge. A reversed "a-b"
// or a non-numeric token is a *ValidationError. An empty expression
// selects everything; an expression selecting nothing is valid.
func Parse(expr string, n int) (Set, error) {
	if n < 0 {
		n = 0
	}
	if strings.TrimSpace(expr) == "" {
		if n == 0 {
			return Set{bound: n}, nil
		}
		return Set{intervals: []Interval{{Start: 1, End: n}}, bound: n}, nil
	}

	var raw []Interval
	for _, fragment := range strings.Split(expr, ",") {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		interval, ok, err := parseFragment(expr, fragment, n)
		if err != nil {
			return Set{}, err
		}
		if ok {
			raw = append(raw, interval)
		}
	}

	return Set{intervals: normalize(raw), bound: n}, nil
}

func parseFragment(expr, fragment string, n int) (Interval, bool, error) {
	before, after, dashed := strings.Cut(fragment, "-")
	before = strings.TrimSpace(before)
	after = strings.TrimSpace(after)

	if !dashed {
		idx, err := strconv.Atoi(fragment)
		if err != nil {
			return Interval{}, false, &ValidationError{Expr: expr, Fragment: fragment, Reason: "not a number"}
		}
		return clip(Interval{Start: idx, End: idx}, n)
	}

	start, end := 1, n
	startGiven, endGiven := before != "", after != ""
	if startGiven {
		v, err := strconv.Atoi(before)
		if err != nil {
			return Interval{}, false, &ValidationError{Expr: expr, Fragment: fragment, Reason: "start bound is not a number"}
		}
		start = v
	}
	if endGiven {
		v, err := strconv.Atoi(after)
		if err != nil {
			return Interval{}, false, &ValidationError{Expr: expr, Fragment: fragment, Reason: "end bound is not a number"}
		}
		end = v
	}

	// A reversed explicit pair is caller error; a reversal introduced by
	// clipping or defaulting only empties the interval.
	if startGiven && endGiven && end < start {
		return Interval{}, false, &ValidationError{Expr: expr, Fragment: fragment, Reason: "end bound precedes start bound"}
	}

	return clip(Interval{Start: start, End: end}, n)
}

func clip(iv Interval, n int) (Interval, bool, error) {
	if iv.Start < 1 {
		iv.Start = 1
	}
	if iv.End > n {
		iv.End = n
	}
	if iv.Start > iv.End || n == 0 {
		return Interval{}, false, nil
	}
	return iv, true, nil
}

func normalize(raw []Interval) []Interval {
	if len(raw) == 0 {
		return nil
	}
	sorted := make([]Interval, len(raw))
	copy(sorted, raw)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start < sorted[j-1].Start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	merged := sorted[:1]
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End+1 {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Intervals returns the normalized interval list.
func (s Set) Intervals() []Interval { return s.intervals }

// Empty reports whether the set selects no indices.
func (s Set) Empty() bool { return len(s.intervals) == 0 }

// Count returns the number of selected indices.
func (s Set) Count() int {
	total := 0
	for _, iv := range s.intervals {
		total += iv.End - iv.Start + 1
	}
	return total
}

// Contains reports whether the 1-based index is selected.
func (s Set) Contains(idx int) bool {
	for _, iv := range s.intervals {
		if idx < iv.Start {
			return false
		}
		if idx <= iv.End {
			return true
		}
	}
	return false
}

// Indices expands the set into an ascending list of 1-based indices.
func (s Set) Indices() []int {
	out := make([]int, 0, s.Count())
	for _, iv := range s.intervals {
		for idx := iv.Start; idx <= iv.End; idx++ {
			out = append(out, idx)
		}
	}
	return out
}

// String renders the canonical form of the set. Re-parsing the canonical
// form against the same bound reproduces the set exactly.
func (s Set) String() string {
	parts := make([]string, 0, len(s.intervals))
	for _, iv := range s.intervals {
		if iv.Start == iv.End {
			parts = append(parts, strconv.Itoa(iv.Start))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d-%d", iv.Start, iv.End))
	}
	return strings.Join(parts, ",")
}
