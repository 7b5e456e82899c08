package livesync

import "sync"

// Guard is a reentrant hold counter with optional edge hooks.
//
// Hold/Release calls nest: onFirst runs only on the transition from zero
// holds to one, and onLast only on the transition back to zero. A Release
// without a matching Hold is a no-op, so unbalanced callers cannot drive
// the count negative.
//
// The store uses a Guard to coalesce notifications across batched
// mutations; it is exported because the same shape is useful wherever a
// shared state change must survive nested acquire/release pairs (the
// innermost scope must not prematurely undo what an outer scope still
// relies on).
type Guard struct {
	mu      sync.Mutex
	count   int
	onFirst func()
	onLast  func()
}

// NewGuard creates a [Guard]. Either hook may be nil.
func NewGuard(onFirst, onLast func()) *Guard {
	return &Guard{onFirst: onFirst, onLast: onLast}
}

// Hold acquires one level. The first acquisition runs the onFirst hook.
func (g *Guard) Hold() {
	g.mu.Lock()
	g.count++
	first := g.count == 1
	g.mu.Unlock()

	if first {
		invokeCallback("guard onFirst", g.onFirst)
	}
}

// Release drops one level. The final release runs the onLast hook.
// Releasing an unheld guard is a no-op.
func (g *Guard) Release() {
	g.mu.Lock()
	if g.count == 0 {
		g.mu.Unlock()
		return
	}
	g.count--
	last := g.count == 0
	g.mu.Unlock()

	if last {
		invokeCallback("guard onLast", g.onLast)
	}
}

// Held reports whether at least one hold is outstanding.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count > 0
}
