package livesync

import (
	"errors"
	"testing"
)

func mustRecents(t *testing.T, storage Storage, max int) *Recents {
	t.Helper()
	r, err := NewRecents(storage, "recent-searches", max)
	if err != nil {
		t.Fatalf("NewRecents() error = %v", err)
	}
	return r
}

func TestNewRecents_Validation(t *testing.T) {
	storage := NewMemoryStorage()

	if _, err := NewRecents(nil, "k", 5); err == nil {
		t.Error("NewRecents(nil storage) expected error, got nil")
	}
	if _, err := NewRecents(storage, "", 5); err == nil {
		t.Error("NewRecents(empty key) expected error, got nil")
	}
	if _, err := NewRecents(storage, "k", -1); err == nil {
		t.Error("NewRecents(negative max) expected error, got nil")
	}
}

func TestRecents_MostRecentFirst(t *testing.T) {
	r := mustRecents(t, NewMemoryStorage(), 5)

	for _, v := range []string{"alpha", "beta", "gamma"} {
		if err := r.Add(v); err != nil {
			t.Fatalf("Add(%q) error = %v", v, err)
		}
	}

	list, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"gamma", "beta", "alpha"}
	if len(list) != len(want) {
		t.Fatalf("List() = %v, want %v", list, want)
	}
	for i := range want {
		if list[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, list[i], want[i])
		}
	}
}

func TestRecents_AddDeduplicatesToFront(t *testing.T) {
	r := mustRecents(t, NewMemoryStorage(), 5)

	_ = r.Add("alpha")
	_ = r.Add("beta")
	_ = r.Add("alpha")

	list, _ := r.List()
	if len(list) != 2 {
		t.Fatalf("List() = %v, want 2 entries", list)
	}
	if list[0] != "alpha" || list[1] != "beta" {
		t.Errorf("List() = %v, want [alpha beta]", list)
	}
}

func TestRecents_TrimsToMax(t *testing.T) {
	r := mustRecents(t, NewMemoryStorage(), 3)

	for _, v := range []string{"a", "b", "c", "d", "e"} {
		_ = r.Add(v)
	}

	list, _ := r.List()
	if len(list) != 3 {
		t.Fatalf("List() = %d entries, want 3", len(list))
	}
	if list[0] != "e" {
		t.Errorf("List()[0] = %q, want %q", list[0], "e")
	}
}

func TestRecents_EmptyValueIgnored(t *testing.T) {
	r := mustRecents(t, NewMemoryStorage(), 3)

	if err := r.Add(""); err != nil {
		t.Fatalf("Add(\"\") error = %v", err)
	}
	list, _ := r.List()
	if len(list) != 0 {
		t.Errorf("List() = %v, want empty", list)
	}
}

func TestRecents_ListMissingKeyIsEmpty(t *testing.T) {
	r := mustRecents(t, NewMemoryStorage(), 3)

	list, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v, want nil for absent key", err)
	}
	if len(list) != 0 {
		t.Errorf("List() = %v, want empty", list)
	}
}

func TestRecents_Clear(t *testing.T) {
	r := mustRecents(t, NewMemoryStorage(), 3)
	_ = r.Add("alpha")

	if err := r.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	list, _ := r.List()
	if len(list) != 0 {
		t.Errorf("List() after Clear = %v, want empty", list)
	}
}

func TestRecents_CorruptEntryTreatedAsAbsent(t *testing.T) {
	storage := NewMemoryStorage()
	_ = storage.Set("recent-searches", []byte("{not a list"))
	r := mustRecents(t, storage, 3)

	list, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v, want nil for corrupt entry", err)
	}
	if len(list) != 0 {
		t.Errorf("List() = %v, want empty", list)
	}

	// and the feature recovers on the next add
	if err := r.Add("fresh"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	list, _ = r.List()
	if len(list) != 1 || list[0] != "fresh" {
		t.Errorf("List() = %v, want [fresh]", list)
	}
}

// failingStorage returns a fixed error from every operation.
type failingStorage struct {
	err error
}

func (f failingStorage) Get(string) ([]byte, error) { return nil, f.err }
func (f failingStorage) Set(string, []byte) error   { return f.err }
func (f failingStorage) Delete(string) error        { return f.err }

func TestRecents_SurfacesStorageErrors(t *testing.T) {
	sentinel := errors.New("disk on fire")
	r := mustRecents(t, failingStorage{err: sentinel}, 3)

	if err := r.Add("alpha"); !errors.Is(err, sentinel) {
		t.Errorf("Add() error = %v, want wrapped sentinel", err)
	}
	if _, err := r.List(); !errors.Is(err, sentinel) {
		t.Errorf("List() error = %v, want wrapped sentinel", err)
	}
	if err := r.Clear(); !errors.Is(err, sentinel) {
		t.Errorf("Clear() error = %v, want wrapped sentinel", err)
	}
}

func TestSession_RecentsUsesSessionStorage(t *testing.T) {
	storage := NewMemoryStorage()
	s, err := New(WithStorage(storage))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	r, err := s.Recents("recent-commands", 0)
	if err != nil {
		t.Fatalf("Recents() error = %v", err)
	}
	if err := r.Add("deploy"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if _, err := storage.Get("recent-commands"); err != nil {
		t.Errorf("session storage missing persisted recents: %v", err)
	}
}
