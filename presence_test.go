package livesync

import (
	"testing"
	"time"
)

func newTestPresence(t *testing.T) *Presence {
	t.Helper()
	session := newTestSession(t)
	p, err := session.Track("room:lobby")
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	return p
}

func TestPresence_JoinIsIdempotent(t *testing.T) {
	p := newTestPresence(t)

	p.Join(User{ID: "u1", Name: "Ada"})
	p.Join(User{ID: "u1", Name: "Someone Else"})

	if got := p.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	users := p.Users()
	if users[0].Name != "Ada" {
		t.Errorf("duplicate join overwrote record: Name = %q, want %q", users[0].Name, "Ada")
	}
}

func TestPresence_Leave(t *testing.T) {
	p := newTestPresence(t)
	p.Join(User{ID: "u1"})
	p.Join(User{ID: "u2"})

	p.Leave("u1")

	if p.IsOnline("u1") {
		t.Error("IsOnline(u1) after Leave = true, want false")
	}
	if got := p.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	// leaving an absent user is a no-op
	p.Leave("ghost")
	if got := p.Count(); got != 1 {
		t.Errorf("Count() after leaving absent user = %d, want 1", got)
	}
}

func TestPresence_SyncReplacesSet(t *testing.T) {
	p := newTestPresence(t)
	p.Join(User{ID: "old"})

	p.Sync([]User{{ID: "u1"}, {ID: "u2"}})

	if p.IsOnline("old") {
		t.Error("IsOnline(old) after Sync = true, want false")
	}
	if got := p.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestPresence_UpdateUser(t *testing.T) {
	p := newTestPresence(t)
	p.Join(User{ID: "u1", Name: "Ada"})

	p.UpdateUser("u1", map[string]any{
		"typing": true,
		"status": "away",
		"mood":   "curious",
	})

	users := p.Users()
	u := users[0]
	if !u.Typing {
		t.Error("Typing = false, want true")
	}
	if u.Status != "away" {
		t.Errorf("Status = %q, want %q", u.Status, "away")
	}
	if u.Name != "Ada" {
		t.Errorf("Name = %q, want %q (untouched)", u.Name, "Ada")
	}
	if u.Meta["mood"] != "curious" {
		t.Errorf("Meta[mood] = %v, want %q", u.Meta["mood"], "curious")
	}

	// unknown id is a no-op
	p.UpdateUser("ghost", map[string]any{"typing": true})
	if got := p.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestPresence_TypingView(t *testing.T) {
	p := newTestPresence(t)
	p.Sync([]User{
		{ID: "u1", Typing: true},
		{ID: "u2"},
		{ID: "u3", Typing: true},
	})

	typing := p.Typing()
	if len(typing) != 2 {
		t.Fatalf("Typing() = %d users, want 2", len(typing))
	}

	p.UpdateUser("u1", map[string]any{"typing": false})
	if got := len(p.Typing()); got != 1 {
		t.Errorf("Typing() after stop = %d users, want 1", got)
	}
}

func TestPresence_SubscribeReceivesSnapshots(t *testing.T) {
	p := newTestPresence(t)
	ch := p.Subscribe()
	defer p.Unsubscribe(ch)

	p.Join(User{ID: "u1"})

	select {
	case users := <-ch:
		if len(users) != 1 || users[0].ID != "u1" {
			t.Errorf("snapshot = %v, want [u1]", users)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}
}

func TestPresence_DestroyUntracks(t *testing.T) {
	session := newTestSession(t)
	p, err := session.Track("room:lobby")
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	ch := p.Subscribe()

	p.Destroy()

	if _, ok := <-ch; ok {
		t.Error("subscriber channel still open after Destroy")
	}
	if topics := session.Topics(); len(topics) != 0 {
		t.Errorf("Topics() after Destroy = %v, want empty", topics)
	}
	if _, err := session.Track("room:lobby"); err != nil {
		t.Errorf("Track() after Destroy error = %v, want topic free for reuse", err)
	}
}
