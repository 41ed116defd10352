package timing

import (
	"testing"
	"time"

	"logreplay/internal/model"
)

// fakeTimer captures scheduled callbacks so tests can fire them manually.
type fakeTimer struct {
	delay    time.Duration
	fn       func()
	canceled bool
}

type fakeClock struct {
	timers []*fakeTimer
	now    time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) schedule(d time.Duration, fn func()) func() {
	t := &fakeTimer{delay: d, fn: fn}
	c.timers = append(c.timers, t)
	return func() { t.canceled = true }
}

func (c *fakeClock) last() *fakeTimer {
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

// fire advances the clock by the pending delay and runs the callback.
func (c *fakeClock) fire(t *testing.T) {
	t.Helper()
	timer := c.last()
	if timer == nil {
		t.Fatal("no timer scheduled")
	}
	if timer.canceled {
		t.Fatal("last timer was canceled")
	}
	c.now = c.now.Add(timer.delay)
	timer.fn()
}

func (c *fakeClock) advanceBy(d time.Duration) { c.now = c.now.Add(d) }

func stampedSession(offsets ...int) *model.Session {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &model.Session{Agent: model.AgentClaude, SessionID: "t"}
	for i, off := range offsets {
		ev := model.Event{
			Index:   i + 1,
			Role:    model.RoleUser,
			Content: []model.ContentBlock{{Type: model.BlockText, Text: "m"}},
		}
		if off >= 0 {
			ev.Timestamp = base.Add(time.Duration(off) * time.Second)
		}
		s.Events = append(s.Events, ev)
	}
	return s
}

func newTestEngine(s *model.Session, clock *fakeClock, opts Options) (*Engine, *[]int) {
	var revealed []int
	opts.Scheduler = clock.schedule
	opts.Now = func() time.Time { return clock.now }
	opts.OnAdvance = func(i int) { revealed = append(revealed, i) }
	return NewEngine(s.All(), opts), &revealed
}

func TestUniformDelays(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeUniform})

	for i := 1; i <= 2; i++ {
		if d := e.Delay(i); d != 800*time.Millisecond {
			t.Errorf("gap %d delay = %v, want 800ms", i, d)
		}
	}
}

func TestRealTimeDelays(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeRealTime})

	if d := e.Delay(1); d != 2*time.Second {
		t.Errorf("gap 1 delay = %v, want 2s", d)
	}
	if d := e.Delay(2); d != 3*time.Second {
		t.Errorf("gap 2 delay = %v, want 3s", d)
	}
}

func TestRealTimeMissingTimestampFallsBack(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, -1, 5), clock, Options{Mode: ModeRealTime})

	if d := e.Delay(1); d != 800*time.Millisecond {
		t.Errorf("gap 1 delay = %v, want uniform fallback", d)
	}
	if d := e.Delay(2); d != 800*time.Millisecond {
		t.Errorf("gap 2 delay = %v, want uniform fallback", d)
	}
}

func TestCompressedDelays(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeCompressed})

	if d := e.Delay(1); d != 24*time.Second {
		t.Errorf("gap 1 delay = %v, want 24s", d)
	}
	if d := e.Delay(2); d != 36*time.Second {
		t.Errorf("gap 2 delay = %v, want 36s", d)
	}
}

func TestCompressedZeroDurationFallsBack(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 0, 0), clock, Options{Mode: ModeCompressed})

	if d := e.Delay(1); d != 800*time.Millisecond {
		t.Errorf("delay = %v, want uniform fallback", d)
	}
}

func TestSpeedDividesDelay(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeRealTime, Speed: 2})

	if d := e.Delay(1); d != time.Second {
		t.Errorf("delay = %v, want 1s", d)
	}
}

func TestMinimumDelayClamp(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeUniform, Speed: 100})

	if d := e.Delay(1); d != 50*time.Millisecond {
		t.Errorf("delay = %v, want 50ms clamp", d)
	}
}

func TestPlayRevealsAndAdvances(t *testing.T) {
	clock := newFakeClock()
	e, revealed := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeUniform})

	e.Play()
	if e.State() != StatePlaying {
		t.Fatalf("state = %s", e.State())
	}
	clock.fire(t)
	clock.fire(t)

	if e.State() != StateEnded {
		t.Errorf("state = %s, want ended", e.State())
	}
	want := []int{1, 2, 3}
	if len(*revealed) != len(want) {
		t.Fatalf("revealed %v, want %v", *revealed, want)
	}
	for i, idx := range want {
		if (*revealed)[i] != idx {
			t.Errorf("revealed[%d] = %d, want %d", i, (*revealed)[i], idx)
		}
	}
}

func TestPauseResumeKeepsRemainder(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeRealTime})

	e.Play() // waiting 2s before event 2
	clock.advanceBy(1500 * time.Millisecond)
	e.Pause()
	if e.State() != StatePaused {
		t.Fatalf("state = %s", e.State())
	}
	if !clock.last().canceled {
		t.Error("pending advance not canceled on pause")
	}

	e.Resume()
	if got := clock.last().delay; got != 500*time.Millisecond {
		t.Errorf("resumed delay = %v, want 500ms remainder", got)
	}
}

func TestSeekWhilePausedDiscardsOldRemainder(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeRealTime})

	e.Play() // waiting 2s before event 2
	clock.advanceBy(1500 * time.Millisecond)
	e.Pause()
	e.Seek(2)
	if e.State() != StatePaused {
		t.Fatalf("state = %s", e.State())
	}

	e.Resume()
	if got := clock.last().delay; got != 3*time.Second {
		t.Errorf("resumed delay = %v, want 3s for the gap starting at the new cursor", got)
	}
}

func TestSpeedChangeRescalesRemainingOnly(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeRealTime})

	e.Play() // waiting 2s
	clock.advanceBy(time.Second)
	e.SetSpeed(2)

	if got := clock.last().delay; got != 500*time.Millisecond {
		t.Errorf("rescheduled delay = %v, want 500ms", got)
	}
	if e.Cursor() != 1 {
		t.Errorf("cursor moved to %d on speed change", e.Cursor())
	}
}

func TestSeekWhilePlayingUsesNewPosition(t *testing.T) {
	clock := newFakeClock()
	e, revealed := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeRealTime})

	e.Play() // waiting 2s toward event 2
	stale := clock.last()
	e.Seek(2) // gap 2->3 is 3s

	if !stale.canceled {
		t.Error("stale advance not canceled on seek")
	}
	if got := clock.last().delay; got != 3*time.Second {
		t.Errorf("delay after seek = %v, want 3s", got)
	}
	if (*revealed)[len(*revealed)-1] != 2 {
		t.Errorf("last revealed = %d, want 2", (*revealed)[len(*revealed)-1])
	}

	// A stale timer firing late must not advance the cursor.
	stale.fn()
	if e.Cursor() != 2 {
		t.Errorf("cursor = %d after stale fire, want 2", e.Cursor())
	}
}

func TestSeekFromEndedResumesPlayback(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeUniform})

	e.Play()
	clock.fire(t)
	clock.fire(t)
	if e.State() != StateEnded {
		t.Fatalf("state = %s", e.State())
	}

	e.Seek(1)
	if e.State() != StatePlaying {
		t.Errorf("state = %s, want playing", e.State())
	}

	e.Seek(3)
	if e.State() != StateEnded {
		t.Errorf("state = %s, want ended at last index", e.State())
	}
}

func TestSeekClampsToRange(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{})

	e.Seek(100)
	if e.Cursor() != 3 {
		t.Errorf("cursor = %d, want 3", e.Cursor())
	}
	e.Seek(-5)
	if e.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", e.Cursor())
	}
}

func TestModeChangeSchedulesFullNewDelay(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(stampedSession(0, 2, 5), clock, Options{Mode: ModeUniform})

	e.Play() // waiting 800ms
	clock.advanceBy(400 * time.Millisecond)
	e.SetMode(ModeRealTime)

	if got := clock.last().delay; got != 2*time.Second {
		t.Errorf("delay after mode change = %v, want full 2s", got)
	}
}

func TestEmptyViewEndsImmediately(t *testing.T) {
	clock := newFakeClock()
	e, revealed := newTestEngine(&model.Session{}, clock, Options{})

	e.Play()
	if e.State() != StateEnded {
		t.Errorf("state = %s, want ended", e.State())
	}
	if len(*revealed) != 0 {
		t.Errorf("revealed %v from empty view", *revealed)
	}
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"uniform", "realtime", "compressed"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("%s: %v", valid, err)
		}
	}
	if _, err := ParseMode("warp"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
