package livesync

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// TypingTracker debounces input events into typing start/stop
// transitions.
//
// The tracker is a two-state machine. The first [TypingTracker.Input]
// moves it from idle to typing and fires onStart; each further Input
// resets the debounce timer; when the timer elapses with no further
// input, the tracker returns to idle and fires onStop. An explicit
// [TypingTracker.Stop] forces the idle transition immediately (typically
// on submit) and cancels the pending timer.
//
// Callbacks are invoked without internal locks held, so they may call
// back into the tracker. A burst of Input calls within the debounce
// window fires onStart exactly once and onStop exactly once.
type TypingTracker struct {
	debounce time.Duration
	onStart  func()
	onStop   func()

	mu     sync.Mutex
	typing bool
	timer  *time.Timer
	gen    uint64
}

// NewTypingTracker creates a [TypingTracker] with the given debounce
// window. Either callback may be nil.
//
// Returns an error if the debounce duration is zero or negative.
func NewTypingTracker(debounce time.Duration, onStart, onStop func()) (*TypingTracker, error) {
	if debounce <= 0 {
		return nil, errors.New("debounce duration must be positive")
	}
	return &TypingTracker{
		debounce: debounce,
		onStart:  onStart,
		onStop:   onStop,
	}, nil
}

// Input records one input event: the idle-to-typing edge on the first
// call, a timer reset on every subsequent call.
func (t *TypingTracker) Input() {
	t.mu.Lock()
	started := !t.typing
	t.typing = true
	if t.timer != nil {
		t.timer.Stop()
	}
	// the generation tag lets expire detect it lost the race against a
	// timer reset that happened after it already fired
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.debounce, func() { t.expire(gen) })
	t.mu.Unlock()

	if started {
		invokeCallback("typing onStart", t.onStart)
	}
}

// Stop forces the idle transition immediately and cancels the pending
// timer. Calling Stop while already idle is a no-op.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	stopped := t.typing
	t.typing = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	if stopped {
		invokeCallback("typing onStop", t.onStop)
	}
}

// Typing reports whether the tracker is in the typing state.
func (t *TypingTracker) Typing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// expire is the debounce timer callback.
func (t *TypingTracker) expire(gen uint64) {
	t.mu.Lock()
	if !t.typing || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.typing = false
	t.timer = nil
	t.mu.Unlock()

	invokeCallback("typing onStop", t.onStop)
}

// invokeCallback runs a user callback, recovering and logging a panic so
// a misbehaving callback cannot take down the timer goroutine.
func invokeCallback(name string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Error("callback panicked", "callback", name, "panic", r)
		}
	}()
	fn()
}
