package livesync

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

const defaultStoreBuffer = 16

// Inbound event names of the realtime contract. A transport (such as
// internal/wsbridge) feeds these to [Session.Dispatch] as they arrive.
const (
	EventStoreSync      = "store:sync"
	EventStoreReconcile = "store:reconcile"
	EventStoreRollback  = "store:rollback"
	EventPresenceSync   = "presence:sync"
	EventPresenceJoin   = "presence:join"
	EventPresenceLeave  = "presence:leave"
	EventPresenceUpdate = "presence:update"
)

// Session owns the registries that connect named collections and topics
// to their stores, and routes inbound server events to them.
//
// A Session is the explicit replacement for ambient module-level state:
// everything a page or connection creates hangs off one Session, and
// [Session.Close] tears all of it down. Create one with [New], register
// stores with [NewStore] and presence sets with [Session.Track].
//
// All methods are safe for concurrent use.
type Session struct {
	logger  *slog.Logger
	bridge  Bridge
	storage Storage
	bufSize int

	mu        sync.RWMutex
	stores    map[string]storeHandler
	presences map[string]*Presence
	closed    bool
}

// New creates a [Session] with the given options.
//
// All options have defaults: logging goes to [slog.Default], storage to
// an in-memory [MemoryStorage], and there is no bridge (outbound helpers
// such as [PushOptimistic] then fail explicitly).
//
// Example:
//
//	s, err := livesync.New(
//	    livesync.WithLogger(logger),
//	    livesync.WithBridge(bridge),
//	)
func New(opts ...Option) (*Session, error) {
	cfg := &sessionConfig{
		bufSize: defaultStoreBuffer,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	storage := cfg.storage
	if storage == nil {
		storage = NewMemoryStorage()
	}

	return &Session{
		logger:    logger,
		bridge:    cfg.bridge,
		storage:   storage,
		bufSize:   cfg.bufSize,
		stores:    make(map[string]storeHandler),
		presences: make(map[string]*Presence),
	}, nil
}

// Track creates and registers a [Presence] set for the topic.
//
// Returns an error if the session is closed or the topic is already
// tracked.
func (s *Session) Track(topic string) (*Presence, error) {
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("session is closed")
	}
	if _, ok := s.presences[topic]; ok {
		return nil, fmt.Errorf("topic %q is already tracked", topic)
	}

	p := newPresence(s, topic)
	s.presences[topic] = p
	return p, nil
}

// Bridge returns the session's outbound [Bridge], or nil if none was
// configured.
func (s *Session) Bridge() Bridge {
	return s.bridge
}

// Storage returns the session's [Storage].
func (s *Session) Storage() Storage {
	return s.storage
}

// Recents creates a [Recents] list persisted in the session's storage
// under key. max bounds the list length; zero selects the default.
func (s *Session) Recents(key string, max int) (*Recents, error) {
	return NewRecents(s.storage, key, max)
}

// StoreNames returns the names of all registered stores, sorted.
//
// Intended for inspection and debug tooling.
func (s *Session) StoreNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Topics returns all tracked presence topics, sorted.
func (s *Session) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make([]string, 0, len(s.presences))
	for topic := range s.presences {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Dispatch routes one inbound server event to the store or presence set
// it addresses.
//
// Anomalies that reflect client/server drift rather than bugs (an
// unknown event name, a store or topic that is not registered, an
// unknown sync action) are logged at warn level and ignored: the next
// full sync heals them. Malformed payloads return an error.
func (s *Session) Dispatch(event string, payload []byte) error {
	switch event {
	case EventStoreSync:
		var env struct {
			Store   string          `json:"store"`
			Action  string          `json:"action"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return fmt.Errorf("dispatch %s: %w", event, err)
		}
		h, ok := s.lookupStore(env.Store)
		if !ok {
			s.logger.Warn("event for unregistered store", "event", event, "store", env.Store)
			return nil
		}
		return h.applySync(env.Action, env.Payload)

	case EventStoreReconcile:
		var env struct {
			Store  string          `json:"store"`
			TempID string          `json:"temp_id"`
			Item   json.RawMessage `json:"item"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return fmt.Errorf("dispatch %s: %w", event, err)
		}
		h, ok := s.lookupStore(env.Store)
		if !ok {
			s.logger.Warn("event for unregistered store", "event", event, "store", env.Store)
			return nil
		}
		return h.applyReconcile(env.TempID, env.Item)

	case EventStoreRollback:
		var env struct {
			Store  string `json:"store"`
			TempID string `json:"temp_id"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return fmt.Errorf("dispatch %s: %w", event, err)
		}
		h, ok := s.lookupStore(env.Store)
		if !ok {
			s.logger.Warn("event for unregistered store", "event", event, "store", env.Store)
			return nil
		}
		h.applyRollback(env.TempID, env.Reason)
		return nil

	case EventPresenceSync:
		var env struct {
			Topic string `json:"topic"`
			Users []User `json:"users"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return fmt.Errorf("dispatch %s: %w", event, err)
		}
		p, ok := s.lookupPresence(env.Topic)
		if !ok {
			s.logger.Warn("event for untracked topic", "event", event, "topic", env.Topic)
			return nil
		}
		p.Sync(env.Users)
		return nil

	case EventPresenceJoin:
		var env struct {
			Topic string `json:"topic"`
			User  User   `json:"user"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return fmt.Errorf("dispatch %s: %w", event, err)
		}
		p, ok := s.lookupPresence(env.Topic)
		if !ok {
			s.logger.Warn("event for untracked topic", "event", event, "topic", env.Topic)
			return nil
		}
		p.Join(env.User)
		return nil

	case EventPresenceLeave:
		var env struct {
			Topic  string `json:"topic"`
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return fmt.Errorf("dispatch %s: %w", event, err)
		}
		p, ok := s.lookupPresence(env.Topic)
		if !ok {
			s.logger.Warn("event for untracked topic", "event", event, "topic", env.Topic)
			return nil
		}
		p.Leave(env.UserID)
		return nil

	case EventPresenceUpdate:
		var env struct {
			Topic  string         `json:"topic"`
			UserID string         `json:"user_id"`
			Meta   map[string]any `json:"meta"`
		}
		if err := json.Unmarshal(payload, &env); err != nil {
			return fmt.Errorf("dispatch %s: %w", event, err)
		}
		p, ok := s.lookupPresence(env.Topic)
		if !ok {
			s.logger.Warn("event for untracked topic", "event", event, "topic", env.Topic)
			return nil
		}
		p.UpdateUser(env.UserID, env.Meta)
		return nil

	default:
		s.logger.Warn("ignoring unknown event", "event", event)
		return nil
	}
}

// Close destroys every registered store and presence set and marks the
// session closed. Further registrations fail; Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stores := s.stores
	presences := s.presences
	s.stores = make(map[string]storeHandler)
	s.presences = make(map[string]*Presence)
	s.mu.Unlock()

	for _, h := range stores {
		h.close()
	}
	for _, p := range presences {
		p.close()
	}
}

func (s *Session) storeBuffer() int {
	return s.bufSize
}

func (s *Session) register(h storeHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("session is closed")
	}
	if _, ok := s.stores[h.storeName()]; ok {
		return fmt.Errorf("store %q is already registered", h.storeName())
	}
	s.stores[h.storeName()] = h
	return nil
}

func (s *Session) unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, name)
}

func (s *Session) untrack(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.presences, topic)
}

func (s *Session) lookupStore(name string) (storeHandler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.stores[name]
	return h, ok
}

func (s *Session) lookupPresence(topic string) (*Presence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presences[topic]
	return p, ok
}
