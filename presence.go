package livesync

import (
	"log/slog"
	"sync"
)

// User is one presence record: a user or session currently associated
// with a topic.
type User struct {
	// ID uniquely identifies the user within the topic.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Avatar is an optional avatar URL.
	Avatar string `json:"avatar,omitempty"`

	// Typing reports whether the user is currently typing.
	Typing bool `json:"typing,omitempty"`

	// Status is an optional free-form status ("online", "away", ...).
	Status string `json:"status,omitempty"`

	// Meta carries any further metadata the server attaches.
	Meta map[string]any `json:"meta,omitempty"`
}

// Presence tracks the set of users associated with a realtime topic.
//
// The server is the single authoritative source of presence: updates
// arrive in one stream, so no conflict resolution is needed. The only
// invariant the store enforces is at most one record per user ID, which
// makes duplicate joins idempotent.
//
// All methods are safe for concurrent use. Create with [Session.Track].
type Presence struct {
	topic   string
	session *Session
	logger  *slog.Logger

	mu    sync.RWMutex
	users []User

	subMu       sync.RWMutex
	subscribers map[chan []User]struct{}
	bufSize     int
}

func newPresence(session *Session, topic string) *Presence {
	return &Presence{
		topic:       topic,
		session:     session,
		logger:      session.logger.With("topic", topic),
		subscribers: make(map[chan []User]struct{}),
		bufSize:     session.storeBuffer(),
	}
}

// Topic returns the topic string the presence set is registered under.
func (p *Presence) Topic() string {
	return p.topic
}

// Sync replaces the whole presence set with the server's authoritative
// list.
func (p *Presence) Sync(users []User) {
	p.mu.Lock()
	p.users = append([]User(nil), users...)
	p.mu.Unlock()
	p.notify()
}

// Join adds a user to the set. Joins are idempotent by user ID: a
// duplicate join leaves the existing record untouched.
func (p *Presence) Join(user User) {
	p.mu.Lock()
	for _, u := range p.users {
		if u.ID == user.ID {
			p.mu.Unlock()
			return
		}
	}
	p.users = append(p.users, user)
	p.mu.Unlock()
	p.notify()
}

// Leave removes the user with the given ID. Unknown IDs are a no-op.
func (p *Presence) Leave(id string) {
	p.mu.Lock()
	removed := false
	for i, u := range p.users {
		if u.ID == id {
			p.users = append(p.users[:i], p.users[i+1:]...)
			removed = true
			break
		}
	}
	p.mu.Unlock()
	if removed {
		p.notify()
	}
}

// UpdateUser shallow-merges metadata into the user with the given ID.
//
// The well-known keys "name", "avatar", "typing", and "status" update the
// corresponding [User] fields; everything else lands in [User.Meta].
// Unknown IDs are a no-op.
func (p *Presence) UpdateUser(id string, meta map[string]any) {
	p.mu.Lock()
	found := false
	for i := range p.users {
		if p.users[i].ID == id {
			applyMeta(&p.users[i], meta)
			found = true
			break
		}
	}
	p.mu.Unlock()
	if found {
		p.notify()
	}
}

// Users returns a snapshot of the presence set.
func (p *Presence) Users() []User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// Typing returns the users whose typing flag is set.
func (p *Presence) Typing() []User {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var typing []User
	for _, u := range p.users {
		if u.Typing {
			typing = append(typing, u)
		}
	}
	return typing
}

// Count returns the number of users present.
func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}

// IsOnline reports whether a user with the given ID is present.
func (p *Presence) IsOnline(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, u := range p.users {
		if u.ID == id {
			return true
		}
	}
	return false
}

// Subscribe returns a channel that receives a snapshot of the presence
// set after every change.
//
// Sends are non-blocking; slow consumers miss intermediate snapshots.
// Call [Presence.Unsubscribe] when done.
func (p *Presence) Subscribe() <-chan []User {
	ch := make(chan []User, p.bufSize)

	p.subMu.Lock()
	p.subscribers[ch] = struct{}{}
	p.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (p *Presence) Unsubscribe(ch <-chan []User) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	for sub := range p.subscribers {
		if sub == ch {
			delete(p.subscribers, sub)
			close(sub)
			break
		}
	}
}

// Destroy unregisters the presence set from its session and closes all
// subscriber channels.
func (p *Presence) Destroy() {
	p.session.untrack(p.topic)
	p.close()
}

func (p *Presence) close() {
	p.mu.Lock()
	p.users = nil
	p.mu.Unlock()

	p.subMu.Lock()
	for ch := range p.subscribers {
		delete(p.subscribers, ch)
		close(ch)
	}
	p.subMu.Unlock()
}

func (p *Presence) snapshotLocked() []User {
	snap := make([]User, len(p.users))
	copy(snap, p.users)
	return snap
}

func (p *Presence) notify() {
	p.mu.RLock()
	snap := p.snapshotLocked()
	p.mu.RUnlock()

	p.subMu.RLock()
	defer p.subMu.RUnlock()

	for ch := range p.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

// applyMeta merges one metadata map into a user record.
func applyMeta(u *User, meta map[string]any) {
	for k, v := range meta {
		switch k {
		case "name":
			if s, ok := v.(string); ok {
				u.Name = s
			}
		case "avatar":
			if s, ok := v.(string); ok {
				u.Avatar = s
			}
		case "typing":
			if b, ok := v.(bool); ok {
				u.Typing = b
			}
		case "status":
			if s, ok := v.(string); ok {
				u.Status = s
			}
		default:
			if u.Meta == nil {
				u.Meta = make(map[string]any)
			}
			u.Meta[k] = v
		}
	}
}
