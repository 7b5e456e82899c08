package livesync

import "errors"

// storeConfig holds mutable state during Store construction.
type storeConfig[T any] struct {
	keyFn   func(T) string
	less    func(a, b T) bool
	merge   MergeFunc[T]
	initial []T
	bufSize int
}

// StoreOption configures a [Store] during construction with [NewStore].
//
// Built-in options: [WithKey], [WithSort], [WithMerge], [WithInitial],
// [WithBuffer].
type StoreOption[T any] func(*storeConfig[T]) error

// WithKey sets the key extractor that determines item identity.
//
// The extracted key is what [Store.UpdateItem], [Store.Remove], and
// [Store.Find] match against, and what deduplication during reconcile is
// based on. A key extractor is required.
//
// Example:
//
//	livesync.WithKey(func(m Message) string { return m.ID })
func WithKey[T any](fn func(T) string) StoreOption[T] {
	return func(cfg *storeConfig[T]) error {
		if fn == nil {
			return errors.New("key extractor cannot be nil")
		}
		cfg.keyFn = fn
		return nil
	}
}

// WithSort sets a comparator that keeps the collection sorted.
//
// When configured, the collection is re-sorted after every mutating
// operation. less reports whether a should order before b. The sort is
// stable, so equal items keep their insertion order.
//
// Example:
//
//	livesync.WithSort(func(a, b Message) bool { return a.SentAt.Before(b.SentAt) })
func WithSort[T any](less func(a, b T) bool) StoreOption[T] {
	return func(cfg *storeConfig[T]) error {
		if less == nil {
			return errors.New("comparator cannot be nil")
		}
		cfg.less = less
		return nil
	}
}

// WithMerge sets the conflict strategy applied by [Store.UpdateItem] and
// by inbound update broadcasts.
//
// Defaults to [ServerWins]. See also [ClientWins] and [LastWriteWins].
func WithMerge[T any](merge MergeFunc[T]) StoreOption[T] {
	return func(cfg *storeConfig[T]) error {
		if merge == nil {
			return errors.New("merge strategy cannot be nil")
		}
		cfg.merge = merge
		return nil
	}
}

// WithInitial seeds the store with items at construction time.
//
// The comparator, if configured, is applied to the seed.
func WithInitial[T any](items ...T) StoreOption[T] {
	return func(cfg *storeConfig[T]) error {
		cfg.initial = append(cfg.initial, items...)
		return nil
	}
}

// WithBuffer sets the per-subscriber channel buffer size, overriding the
// session default.
//
// Returns an error if n is zero or negative.
func WithBuffer[T any](n int) StoreOption[T] {
	return func(cfg *storeConfig[T]) error {
		if n <= 0 {
			return errors.New("buffer size must be positive")
		}
		cfg.bufSize = n
		return nil
	}
}
