// Package timing implements the playback scheduler used by interactive
// replay. It advances a cursor over session events under one of three
// delay disciplines, with pause, seek and speed control that never leave
// more than one scheduled advance outstanding.
package timing

import (
	"fmt"
	"sync"
	"time"

	"logreplay/internal/model"
)

// Mode selects the delay discipline for advancing between events.
type Mode string

const (
	// ModeUniform waits a fixed base interval between events.
	ModeUniform Mode = "uniform"
	// ModeRealTime replays the recorded gap between event timestamps.
	ModeRealTime Mode = "realtime"
	// ModeCompressed scales the whole session into a fixed target duration.
	ModeCompressed Mode = "compressed"
)

// ParseMode validates a mode flag value.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeUniform, ModeRealTime, ModeCompressed:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("unsupported timing mode: %s", value)
	}
}

// State is the playback state machine value.
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

const (
	// DefaultBaseInterval is the uniform gap at speed 1.
	DefaultBaseInterval = 800 * time.Millisecond
	// DefaultCompressedTarget is the whole-session duration in compressed mode.
	DefaultCompressedTarget = 60 * time.Second
	// minDelay keeps rapid replays schedulable.
	minDelay = 50 * time.Millisecond
)

// Scheduler runs fn once after delay and returns a cancel function.
// The default implementation wraps time.AfterFunc; tests inject their own.
type Scheduler func(delay time.Duration, fn func()) (cancel func())

func afterFuncScheduler(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Mode             Mode
	Speed            float64
	BaseInterval     time.Duration
	CompressedTarget time.Duration
	Scheduler        Scheduler
	Now              func() time.Time

	// OnAdvance is called with the new cursor index whenever the engine
	// reveals an event, whether by timer or by seek.
	OnAdvance func(index int)
}

// Engine drives replay over the events of one session view. All methods
// are safe for use from the scheduler callback goroutine.
type Engine struct {
	mu sync.Mutex

	events           []model.Event
	mode             Mode
	speed            float64
	baseInterval     time.Duration
	compressedTarget time.Duration
	totalReal        time.Duration

	schedule  Scheduler
	now       func() time.Time
	onAdvance func(int)

	state  State
	cursor int

	cancel    func()
	seq       uint64
	waitStart time.Time
	waitTotal time.Duration
	remaining time.Duration
}

// NewEngine builds an engine over the events of a view.
func NewEngine(view model.View, opts Options) *Engine {
	e := &Engine{
		events:           view.Events(),
		mode:             opts.Mode,
		speed:            opts.Speed,
		baseInterval:     opts.BaseInterval,
		compressedTarget: opts.CompressedTarget,
		schedule:         opts.Scheduler,
		now:              opts.Now,
		onAdvance:        opts.OnAdvance,
		state:            StateIdle,
	}
	if e.mode == "" {
		e.mode = ModeUniform
	}
	if e.speed <= 0 {
		e.speed = 1
	}
	if e.baseInterval <= 0 {
		e.baseInterval = DefaultBaseInterval
	}
	if e.compressedTarget <= 0 {
		e.compressedTarget = DefaultCompressedTarget
	}
	if e.schedule == nil {
		e.schedule = afterFuncScheduler
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.totalReal = totalRealDuration(e.events)
	return e
}

// totalRealDuration spans the first to the last timestamped event.
func totalRealDuration(events []model.Event) time.Duration {
	var first, last time.Time
	for _, ev := range events {
		if ev.Timestamp.IsZero() {
			continue
		}
		if first.IsZero() {
			first = ev.Timestamp
		}
		last = ev.Timestamp
	}
	if first.IsZero() || !last.After(first) {
		return 0
	}
	return last.Sub(first)
}

// State reports the current playback state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Cursor reports the 1-based index of the last revealed event, 0 before
// playback has started.
func (e *Engine) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Speed reports the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Mode reports the current delay discipline.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Delay returns the wait before advancing from event i to i+1 (1-based),
// under the current mode and speed. The result never goes below the
// minimum schedulable delay.
func (e *Engine) Delay(i int) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delayLocked(i)
}

func (e *Engine) delayLocked(i int) time.Duration {
	d := e.rawDelayLocked(i)
	if d < minDelay {
		d = minDelay
	}
	return d
}

func (e *Engine) rawDelayLocked(i int) time.Duration {
	uniform := time.Duration(float64(e.baseInterval) / e.speed)
	if i < 1 || i >= len(e.events) {
		return uniform
	}

	switch e.mode {
	case ModeRealTime:
		gap, ok := e.realGap(i)
		if !ok {
			return uniform
		}
		return time.Duration(float64(gap) / e.speed)

	case ModeCompressed:
		if e.totalReal <= 0 {
			return uniform
		}
		gap, ok := e.realGap(i)
		if !ok {
			return uniform
		}
		scaled := float64(gap) / float64(e.totalReal) * float64(e.compressedTarget)
		return time.Duration(scaled / e.speed)

	default:
		return uniform
	}
}

// realGap returns the recorded duration between events i and i+1
// (1-based). It reports false when either timestamp is absent.
func (e *Engine) realGap(i int) (time.Duration, bool) {
	a := e.events[i-1].Timestamp
	b := e.events[i].Timestamp
	if a.IsZero() || b.IsZero() {
		return 0, false
	}
	return b.Sub(a), true
}

// Play starts or resumes playback. From Idle it reveals the first event;
// from Paused it behaves like Resume. Play has no effect while Ended,
// which is only left through Seek.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle:
		if len(e.events) == 0 {
			e.state = StateEnded
			return
		}
		e.state = StatePlaying
		if e.cursor == 0 {
			e.cursor = 1
			e.notify(1)
		}
		e.scheduleNextLocked(e.delayLocked(e.cursor))
	case StatePaused:
		e.resumeLocked()
	}
}

// Pause stops playback, preserving progress toward the pending advance.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlaying {
		return
	}
	elapsed := e.now().Sub(e.waitStart)
	e.remaining = e.waitTotal - elapsed
	if e.remaining < 0 {
		e.remaining = 0
	}
	e.cancelLocked()
	e.state = StatePaused
}

// Resume continues playback, scheduling only the remaining portion of the
// interrupted wait.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePaused {
		e.resumeLocked()
	}
}

func (e *Engine) resumeLocked() {
	e.state = StatePlaying
	e.scheduleNextLocked(e.remaining)
}

// Seek moves the cursor to index k (clamped to the event range), cancels
// any pending advance and, if playback continues, schedules the next
// advance for the new position. Seeking away from the last index while
// Ended resumes playback.
func (e *Engine) Seek(k int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.events) == 0 {
		return
	}
	if k < 1 {
		k = 1
	}
	if k > len(e.events) {
		k = len(e.events)
	}

	e.cancelLocked()
	e.cursor = k
	e.notify(k)

	switch {
	case k == len(e.events):
		if e.state == StatePlaying || e.state == StateEnded {
			e.state = StateEnded
		}
	case e.state == StatePlaying || e.state == StateEnded:
		e.state = StatePlaying
		e.scheduleNextLocked(e.delayLocked(k))
	case e.state == StatePaused:
		// discard the remainder of the interrupted gap; a later resume
		// waits the full delay of the gap starting at the new cursor
		e.remaining = e.delayLocked(k)
	}
}

// Next advances one event, Prev steps one back. Both are seeks.
func (e *Engine) Next() { e.Seek(e.Cursor() + 1) }
func (e *Engine) Prev() { e.Seek(e.Cursor() - 1) }

// SetSpeed changes the speed multiplier. A pending wait is rescaled so
// that only its remaining portion shrinks or grows; the step is neither
// skipped nor restarted.
func (e *Engine) SetSpeed(s float64) {
	if s <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.speed
	e.speed = s

	switch e.state {
	case StatePlaying:
		elapsed := e.now().Sub(e.waitStart)
		remaining := e.waitTotal - elapsed
		if remaining < 0 {
			remaining = 0
		}
		e.cancelLocked()
		e.scheduleNextLocked(time.Duration(float64(remaining) * old / s))
	case StatePaused:
		e.remaining = time.Duration(float64(e.remaining) * old / s)
	}
}

// SetMode switches the delay discipline. A pending wait is discarded and
// the full delay for the current gap is computed under the new mode.
func (e *Engine) SetMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mode = m
	switch e.state {
	case StatePlaying:
		e.cancelLocked()
		e.scheduleNextLocked(e.delayLocked(e.cursor))
	case StatePaused:
		e.remaining = e.delayLocked(e.cursor)
	}
}

// scheduleNextLocked arms the single outstanding advance. The sequence
// token makes a timer that fires after cancellation a no-op.
func (e *Engine) scheduleNextLocked(d time.Duration) {
	if e.cursor >= len(e.events) {
		e.state = StateEnded
		return
	}
	if d < minDelay {
		d = minDelay
	}

	e.seq++
	token := e.seq
	e.waitStart = e.now()
	e.waitTotal = d
	e.cancel = e.schedule(d, func() { e.advance(token) })
}

func (e *Engine) advance(token uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if token != e.seq || e.state != StatePlaying {
		return
	}
	e.cancel = nil
	e.cursor++
	e.notify(e.cursor)

	if e.cursor >= len(e.events) {
		e.state = StateEnded
		return
	}
	e.scheduleNextLocked(e.delayLocked(e.cursor))
}

func (e *Engine) cancelLocked() {
	e.seq++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) notify(index int) {
	if e.onAdvance != nil {
		e.onAdvance(index)
	}
}
