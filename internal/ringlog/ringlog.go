package ringlog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultCapacity bounds the ring when no capacity is given.
const defaultCapacity = 256

// Entry is one captured log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   []slog.Attr
}

// ring is the shared buffer behind all derived handlers.
type ring struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

func (r *ring) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, e)
	if len(r.entries) > r.max {
		// drop the oldest; copy to avoid unbounded backing-array growth
		overflow := len(r.entries) - r.max
		r.entries = append([]Entry(nil), r.entries[overflow:]...)
	}
}

func (r *ring) snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := make([]Entry, len(r.entries))
	copy(snap, r.entries)
	return snap
}

// Handler is a [slog.Handler] that records the most recent records in a
// bounded ring and forwards them to an optional inner handler.
//
// Handlers derived via WithAttrs/WithGroup share the same ring, so one
// buffer observes the whole logger tree.
type Handler struct {
	ring  *ring
	inner slog.Handler
	attrs []slog.Attr
}

// New creates a [Handler] capturing up to capacity records.
//
// inner may be nil, in which case records are only captured. capacity
// values below one select the default of 256.
func New(inner slog.Handler, capacity int) *Handler {
	if capacity < 1 {
		capacity = defaultCapacity
	}
	return &Handler{
		ring:  &ring{max: capacity},
		inner: inner,
	}
}

// Enabled implements [slog.Handler]. Without an inner handler every
// level is captured.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.inner != nil {
		return h.inner.Enabled(ctx, level)
	}
	return true
}

// Handle implements [slog.Handler].
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	h.ring.add(Entry{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})

	if h.inner != nil {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

// WithAttrs implements [slog.Handler]. The derived handler shares the
// ring.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var inner slog.Handler
	if h.inner != nil {
		inner = h.inner.WithAttrs(attrs)
	}
	return &Handler{
		ring:  h.ring,
		inner: inner,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements [slog.Handler]. Groups are flattened out of the
// captured entries; the inner handler still sees them.
func (h *Handler) WithGroup(name string) slog.Handler {
	var inner slog.Handler
	if h.inner != nil {
		inner = h.inner.WithGroup(name)
	}
	return &Handler{
		ring:  h.ring,
		inner: inner,
		attrs: h.attrs,
	}
}

// Entries returns a snapshot of the captured records, oldest first.
func (h *Handler) Entries() []Entry {
	return h.ring.snapshot()
}
