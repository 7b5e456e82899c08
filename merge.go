package livesync

import "time"

// MergeFunc resolves a conflict between the local copy of an item and a
// remote update to it, returning the value to keep.
//
// Merge strategies are value-level policies, not algorithms: true conflict
// resolution belongs to the server. The built-ins cover the common cases;
// custom strategies can field-merge however the item type requires.
type MergeFunc[T any] func(local, remote T) T

// ServerWins returns a strategy that always takes the remote value.
//
// This is the default for every store: the server owns the collection, so
// its version of an item replaces the local one.
func ServerWins[T any]() MergeFunc[T] {
	return func(_, remote T) T {
		return remote
	}
}

// ClientWins returns a strategy that always keeps the local value.
//
// Useful for fields the client is actively editing, where a stale
// broadcast should not clobber in-progress input.
func ClientWins[T any]() MergeFunc[T] {
	return func(local, _ T) T {
		return local
	}
}

// LastWriteWins returns a strategy that keeps whichever value carries the
// later timestamp, as reported by at. Ties go to the remote value.
func LastWriteWins[T any](at func(T) time.Time) MergeFunc[T] {
	return func(local, remote T) T {
		if at(local).After(at(remote)) {
			return local
		}
		return remote
	}
}
