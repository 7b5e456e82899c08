package sqlitekv

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jpalmerr/livesync"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SetGet(t *testing.T) {
	store := openTestStore(t)

	if err := store.Set("greeting", []byte("hello")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get("greeting")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Get() = %q, want %q", got, "hello")
	}
}

func TestStore_SetReplaces(t *testing.T) {
	store := openTestStore(t)

	if err := store.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("k", []byte("v2")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get() = %q, want %q", got, "v2")
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get("missing")
	if !errors.Is(err, livesync.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)

	if err := store.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Get("k"); !errors.Is(err, livesync.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteMissing(t *testing.T) {
	store := openTestStore(t)

	if err := store.Delete("missing"); err != nil {
		t.Errorf("Delete() error = %v, want nil for absent key", err)
	}
}

func TestStore_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Set("k", []byte("survives")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "survives" {
		t.Errorf("Get() = %q, want %q", got, "survives")
	}
}
