package livesync

import (
	"errors"
	"log/slog"
)

// sessionConfig holds mutable state during Session construction.
type sessionConfig struct {
	logger  *slog.Logger
	bridge  Bridge
	storage Storage
	bufSize int
}

// Option configures a [Session] during construction with [New].
//
// Built-in options: [WithLogger], [WithBridge], [WithStorage],
// [WithStoreBuffer].
type Option func(*sessionConfig) error

// WithLogger sets a custom [slog.Logger] for the session and everything
// registered in it.
//
// If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	s, err := livesync.New(livesync.WithLogger(logger))
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *sessionConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithBridge sets the outbound [Bridge] used by push helpers such as
// [PushOptimistic].
//
// Sessions without a bridge are receive-only: inbound dispatch works,
// outbound helpers return an error.
func WithBridge(bridge Bridge) Option {
	return func(cfg *sessionConfig) error {
		if bridge == nil {
			return errors.New("bridge cannot be nil")
		}
		cfg.bridge = bridge
		return nil
	}
}

// WithStorage sets the [Storage] backing persisted client state such as
// [Recents] lists.
//
// Defaults to an in-memory [MemoryStorage] when not specified.
func WithStorage(storage Storage) Option {
	return func(cfg *sessionConfig) error {
		if storage == nil {
			return errors.New("storage cannot be nil")
		}
		cfg.storage = storage
		return nil
	}
}

// WithStoreBuffer sets the default per-subscriber channel buffer size for
// stores and presence sets created in this session.
//
// Individual stores can override it with [WithBuffer]. Defaults to 16.
// Returns an error if n is zero or negative.
func WithStoreBuffer(n int) Option {
	return func(cfg *sessionConfig) error {
		if n <= 0 {
			return errors.New("store buffer must be positive")
		}
		cfg.bufSize = n
		return nil
	}
}
