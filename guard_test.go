package livesync

import "testing"

func TestGuard_EdgeHooksFireOnTransitionsOnly(t *testing.T) {
	var firsts, lasts int
	g := NewGuard(func() { firsts++ }, func() { lasts++ })

	g.Hold()
	g.Hold()

	if firsts != 1 {
		t.Errorf("onFirst fired %d times after two holds, want 1", firsts)
	}
	if !g.Held() {
		t.Error("Held() = false, want true")
	}

	// nested release: still held, no onLast
	g.Release()
	if lasts != 0 {
		t.Errorf("onLast fired %d times after inner release, want 0", lasts)
	}
	if !g.Held() {
		t.Error("Held() after inner release = false, want true (holds nest)")
	}

	// final release restores exactly once
	g.Release()
	if lasts != 1 {
		t.Errorf("onLast fired %d times after final release, want 1", lasts)
	}
	if g.Held() {
		t.Error("Held() after final release = true, want false")
	}
}

func TestGuard_UnbalancedReleaseIsNoOp(t *testing.T) {
	var lasts int
	g := NewGuard(nil, func() { lasts++ })

	g.Release()
	if lasts != 0 {
		t.Errorf("onLast fired %d times for unheld release, want 0", lasts)
	}

	// the stray release must not have driven the count negative
	g.Hold()
	g.Release()
	if lasts != 1 {
		t.Errorf("onLast fired %d times after balanced cycle, want 1", lasts)
	}
}

func TestGuard_Reacquire(t *testing.T) {
	var firsts, lasts int
	g := NewGuard(func() { firsts++ }, func() { lasts++ })

	g.Hold()
	g.Release()
	g.Hold()
	g.Release()

	if firsts != 2 || lasts != 2 {
		t.Errorf("hooks fired (first=%d, last=%d), want (2, 2)", firsts, lasts)
	}
}

func TestGuard_NilHooks(t *testing.T) {
	g := NewGuard(nil, nil)

	// must not panic
	g.Hold()
	g.Release()
}
