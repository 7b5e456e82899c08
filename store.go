package livesync

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Entry wraps a single item in a [Store] together with its optimistic
// bookkeeping tag.
//
// Entries with a non-empty TempID are optimistic: they were inserted
// locally via [Store.AddOptimistic] and are awaiting server confirmation.
// Confirmed entries carry an empty TempID.
type Entry[T any] struct {
	// Value is the item itself.
	Value T

	// TempID is the temporary identifier assigned at optimistic insert
	// time. Empty for server-confirmed entries.
	TempID string
}

// Optimistic reports whether the entry is awaiting server confirmation.
func (e Entry[T]) Optimistic() bool {
	return e.TempID != ""
}

// Store is an observable, ordered mirror of a server-owned collection.
//
// A Store is mutated from two directions: locally, by optimistic
// operations ([Store.Append], [Store.AddOptimistic], ...), and remotely,
// by server broadcasts routed through [Session.Dispatch]. The store
// reconciles the two without the caller having to distinguish them.
//
// All methods are safe for concurrent use. The store performs no I/O:
// transport belongs to the [Bridge].
//
// Create stores with [NewStore]; they register themselves in the owning
// [Session] under their collection name and unregister on [Store.Destroy].
type Store[T any] struct {
	name    string
	session *Session
	logger  *slog.Logger

	keyFn func(T) string
	less  func(a, b T) bool
	merge MergeFunc[T]

	mu      sync.RWMutex
	entries []Entry[T]
	pending map[string]T

	subMu       sync.RWMutex
	subscribers map[chan []Entry[T]]struct{}
	bufSize     int

	guard *Guard
	dirty bool
}

// NewStore creates a [Store] for the named collection and registers it in
// the session.
//
// A key extractor is required ([WithKey]); it determines item identity for
// [Store.UpdateItem], [Store.Remove], and [Store.Find]. An optional
// comparator ([WithSort]) keeps the collection sorted after every mutation.
//
// Returns an error if the session is closed, a store with the same name is
// already registered, or no key extractor was configured.
//
// Example:
//
//	msgs, err := livesync.NewStore(s, "messages",
//	    livesync.WithKey(func(m Message) string { return m.ID }),
//	    livesync.WithSort(func(a, b Message) bool { return a.SentAt.Before(b.SentAt) }),
//	)
func NewStore[T any](session *Session, name string, opts ...StoreOption[T]) (*Store[T], error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if name == "" {
		return nil, fmt.Errorf("store name is required")
	}

	cfg := &storeConfig[T]{
		merge:   ServerWins[T](),
		bufSize: session.storeBuffer(),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.keyFn == nil {
		return nil, fmt.Errorf("store %q: a key extractor is required (use WithKey)", name)
	}

	s := &Store[T]{
		name:        name,
		session:     session,
		logger:      session.logger.With("store", name),
		keyFn:       cfg.keyFn,
		less:        cfg.less,
		merge:       cfg.merge,
		pending:     make(map[string]T),
		subscribers: make(map[chan []Entry[T]]struct{}),
		bufSize:     cfg.bufSize,
	}
	s.guard = NewGuard(nil, s.flush)

	if len(cfg.initial) > 0 {
		s.entries = wrapItems(cfg.initial)
		s.resortLocked()
	}

	if err := session.register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the collection name the store is registered under.
func (s *Store[T]) Name() string {
	return s.name
}

// Items returns a snapshot of the item values in order.
//
// The returned slice is a copy; modifying it does not affect the store.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]T, len(s.entries))
	for i, e := range s.entries {
		items[i] = e.Value
	}
	return items
}

// Entries returns a snapshot of the entries in order, including optimistic
// tags.
func (s *Store[T]) Entries() []Entry[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of items currently in the store.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Find returns the item whose key equals id.
//
// The second return value reports whether such an item exists.
func (s *Store[T]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if s.keyFn(e.Value) == id {
			return e.Value, true
		}
	}
	var zero T
	return zero, false
}

// Set replaces the whole collection.
func (s *Store[T]) Set(items []T) {
	s.mu.Lock()
	s.entries = wrapItems(items)
	s.resortLocked()
	s.mu.Unlock()
	s.notify()
}

// Update transforms the whole collection through fn.
//
// fn receives a copy of the current items and returns the replacement
// collection. The comparator, if configured, is applied to the result.
func (s *Store[T]) Update(fn func(items []T) []T) {
	s.mu.Lock()
	items := make([]T, len(s.entries))
	for i, e := range s.entries {
		items[i] = e.Value
	}
	s.entries = wrapItems(fn(items))
	s.resortLocked()
	s.mu.Unlock()
	s.notify()
}

// Append inserts item at the end of the collection.
func (s *Store[T]) Append(item T) {
	s.mu.Lock()
	s.entries = append(s.entries, Entry[T]{Value: item})
	s.resortLocked()
	s.mu.Unlock()
	s.notify()
}

// Prepend inserts item at the front of the collection.
func (s *Store[T]) Prepend(item T) {
	s.mu.Lock()
	s.entries = append([]Entry[T]{{Value: item}}, s.entries...)
	s.resortLocked()
	s.mu.Unlock()
	s.notify()
}

// UpdateItem merges changes into the item whose key equals id, using the
// store's merge strategy (server-wins unless configured via [WithMerge]).
//
// A missing id is a silent no-op, matching the broadcast-driven usage where
// an update may race a removal.
func (s *Store[T]) UpdateItem(id string, changes T) {
	s.mu.Lock()
	found := false
	for i, e := range s.entries {
		if s.keyFn(e.Value) == id {
			s.entries[i].Value = s.merge(e.Value, changes)
			found = true
			break
		}
	}
	if found {
		s.resortLocked()
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
}

// Remove deletes the item whose key equals id. Missing ids are a no-op.
func (s *Store[T]) Remove(id string) {
	s.mu.Lock()
	removed := false
	for i, e := range s.entries {
		if s.keyFn(e.Value) == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
}

// AddOptimistic inserts item tagged with tempID, pending server
// confirmation.
//
// The original item is recorded so a later [Store.Reconcile] can tell a
// confirmation of this client's write apart from another client's insert.
// Resolve the entry with [Store.Reconcile] or [Store.Rollback].
func (s *Store[T]) AddOptimistic(tempID string, item T) {
	s.mu.Lock()
	s.pending[tempID] = item
	s.entries = append(s.entries, Entry[T]{Value: item, TempID: tempID})
	s.resortLocked()
	s.mu.Unlock()
	s.notify()
}

// Reconcile resolves the optimistic entry tagged tempID with the server's
// confirmed item.
//
// If tempID is pending on this client, the tagged entry is replaced by
// real and the tag cleared. If it is not, the confirmation belongs to a
// concurrent insert from another client and real is appended as a fresh
// item.
func (s *Store[T]) Reconcile(tempID string, real T) {
	s.mu.Lock()
	if _, mine := s.pending[tempID]; mine {
		delete(s.pending, tempID)
		replaced := false
		for i, e := range s.entries {
			if e.TempID == tempID {
				s.entries[i] = Entry[T]{Value: real}
				replaced = true
				break
			}
		}
		if !replaced {
			// optimistic entry was removed locally in the meantime
			s.entries = append(s.entries, Entry[T]{Value: real})
		}
	} else {
		s.entries = append(s.entries, Entry[T]{Value: real})
	}
	s.resortLocked()
	s.mu.Unlock()
	s.notify()
}

// Rollback discards the optimistic entry tagged tempID.
//
// Used when the server rejects the write. Unknown tempIDs are a no-op.
func (s *Store[T]) Rollback(tempID string) {
	s.mu.Lock()
	delete(s.pending, tempID)
	removed := false
	for i, e := range s.entries {
		if e.TempID == tempID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
}

// Pending reports whether an optimistic write tagged tempID is awaiting
// confirmation.
func (s *Store[T]) Pending(tempID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[tempID]
	return ok
}

// Apply executes a decoded [SyncAction] against the store.
func (s *Store[T]) Apply(action SyncAction[T]) {
	action.applyTo(s)
}

// Subscribe returns a channel that receives a snapshot of the entries
// after every mutation.
//
// The channel is buffered; sends are non-blocking, so a slow consumer
// misses intermediate snapshots rather than blocking mutations. Call
// [Store.Unsubscribe] when done.
func (s *Store[T]) Subscribe() <-chan []Entry[T] {
	ch := make(chan []Entry[T], s.bufSize)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call with a channel that was already unsubscribed.
func (s *Store[T]) Unsubscribe(ch <-chan []Entry[T]) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for sub := range s.subscribers {
		if sub == ch {
			delete(s.subscribers, sub)
			close(sub)
			break
		}
	}
}

// Hold suspends subscriber notifications until a matching [Store.Release].
//
// Holds nest: only the final Release flushes, as a single coalesced
// snapshot if anything changed while held. Use around batches of
// mutations to avoid intermediate snapshots.
func (s *Store[T]) Hold() {
	s.guard.Hold()
}

// Release ends one level of notification suspension.
func (s *Store[T]) Release() {
	s.guard.Release()
}

// Destroy unregisters the store from its session, clears pending
// optimistic state, and closes all subscriber channels.
//
// The store must not be used after Destroy.
func (s *Store[T]) Destroy() {
	s.session.unregister(s.name)
	s.close()
}

// close tears down local state without touching the session registry.
func (s *Store[T]) close() {
	s.mu.Lock()
	s.entries = nil
	s.pending = make(map[string]T)
	s.mu.Unlock()

	s.subMu.Lock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.subMu.Unlock()
}

// resortLocked re-sorts the entries when a comparator is configured.
// Callers must hold s.mu.
func (s *Store[T]) resortLocked() {
	if s.less == nil {
		return
	}
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.less(s.entries[i].Value, s.entries[j].Value)
	})
}

func (s *Store[T]) snapshotLocked() []Entry[T] {
	snap := make([]Entry[T], len(s.entries))
	copy(snap, s.entries)
	return snap
}

// notify publishes the current snapshot to all subscribers, unless a Hold
// is in effect, in which case the snapshot is deferred to the final
// Release.
func (s *Store[T]) notify() {
	if s.guard.Held() {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return
	}

	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	s.publish(snap)
}

// flush delivers the coalesced snapshot after the last Release.
func (s *Store[T]) flush() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
}

// publish sends the snapshot to all subscribers without blocking.
func (s *Store[T]) publish(snap []Entry[T]) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the snapshot
		}
	}
}

func wrapItems[T any](items []T) []Entry[T] {
	entries := make([]Entry[T], len(items))
	for i, item := range items {
		entries[i] = Entry[T]{Value: item}
	}
	return entries
}

// storeHandler is the untyped store surface the session registry holds, so
// inbound events can be routed to stores of any item type.
type storeHandler interface {
	storeName() string
	applySync(action string, payload json.RawMessage) error
	applyReconcile(tempID string, item json.RawMessage) error
	applyRollback(tempID, reason string)
	close()
}

func (s *Store[T]) storeName() string {
	return s.name
}

// applySync decodes a broadcast payload for the given action tag and
// applies it. Unknown actions are logged and ignored.
func (s *Store[T]) applySync(action string, payload json.RawMessage) error {
	decoded, err := decodeAction[T](action, payload)
	if err != nil {
		return fmt.Errorf("store %q: action %q: %w", s.name, action, err)
	}
	if decoded == nil {
		s.logger.Warn("ignoring unknown sync action", "action", action)
		return nil
	}
	s.Apply(decoded)
	return nil
}

func (s *Store[T]) applyReconcile(tempID string, item json.RawMessage) error {
	var real T
	if err := json.Unmarshal(item, &real); err != nil {
		return fmt.Errorf("store %q: reconcile %q: %w", s.name, tempID, err)
	}
	s.Reconcile(tempID, real)
	return nil
}

func (s *Store[T]) applyRollback(tempID, reason string) {
	s.logger.Debug("rolling back optimistic write", "temp_id", tempID, "reason", reason)
	s.Rollback(tempID)
}

// patchItem overlays partial JSON changes onto the item whose key equals
// id, then runs the result through the merge strategy.
//
// The overlay round-trips the current item through JSON so that only the
// fields present in changes are replaced (shallow merge), without aliasing
// the stored value.
func (s *Store[T]) patchItem(id string, changes json.RawMessage) error {
	cur, ok := s.Find(id)
	if !ok {
		// update racing a removal: silently ignored
		return nil
	}

	buf, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("store %q: update %q: %w", s.name, id, err)
	}
	var patched T
	if err := json.Unmarshal(buf, &patched); err != nil {
		return fmt.Errorf("store %q: update %q: %w", s.name, id, err)
	}
	if err := json.Unmarshal(changes, &patched); err != nil {
		return fmt.Errorf("store %q: update %q: %w", s.name, id, err)
	}

	s.UpdateItem(id, patched)
	return nil
}
