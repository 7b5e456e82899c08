package livesync

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by [Storage.Get] when the key has no value.
var ErrNotFound = errors.New("livesync: key not found")

// Storage is a small key-value persistence surface for client-side state
// that should survive a session, such as recent searches.
//
// Errors are explicit rather than swallowed: callers that want
// best-effort semantics ignore the error at the call site ([Recents] does
// exactly that, degrading to an empty list). Implementations must be safe
// for concurrent use.
//
// [MemoryStorage] is the in-process implementation; internal/sqlitekv
// provides a durable one.
type Storage interface {
	// Get returns the value stored under key, or [ErrNotFound].
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// MemoryStorage is an in-memory [Storage] implementation.
//
// It never fails; it exists as the default backing for sessions created
// without [WithStorage] and as a test double.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorage creates an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

// Get returns the value stored under key, or [ErrNotFound].
func (m *MemoryStorage) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value under key.
func (m *MemoryStorage) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
