// Package ringlog provides a bounded ring-buffer slog handler.
//
// The handler keeps the most recent log records in memory so that debug
// tooling (such as the CLI's tail command) can surface "what just
// happened" without scraping process output. Records are optionally
// forwarded to an inner handler, so the ring can wrap a normal stderr
// handler transparently.
//
// This package is internal to livesync and not part of the public API.
package ringlog
