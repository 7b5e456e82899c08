// Package sqlitekv provides a durable, sqlite-backed implementation of
// the livesync Storage interface.
//
// It stores values in a single key/value table and maps missing rows to
// livesync.ErrNotFound, so callers see the same error surface as the
// in-memory storage. Intended for CLI and desktop hosts that want recents
// to survive restarts.
//
// This package is internal to livesync and not part of the public API.
package sqlitekv
