package livesync

import (
	"errors"
	"testing"
)

func TestMemoryStorage_Roundtrip(t *testing.T) {
	storage := NewMemoryStorage()

	if err := storage.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := storage.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}

func TestMemoryStorage_GetMissing(t *testing.T) {
	storage := NewMemoryStorage()

	_, err := storage.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStorage_Delete(t *testing.T) {
	storage := NewMemoryStorage()
	_ = storage.Set("k", []byte("v"))

	if err := storage.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := storage.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}

	// deleting an absent key is not an error
	if err := storage.Delete("k"); err != nil {
		t.Errorf("Delete(absent) error = %v, want nil", err)
	}
}

func TestMemoryStorage_CopiesValues(t *testing.T) {
	storage := NewMemoryStorage()

	val := []byte("original")
	_ = storage.Set("k", val)
	val[0] = 'X'

	got, _ := storage.Get("k")
	if string(got) != "original" {
		t.Errorf("Get() = %q, want %q (caller mutation must not leak in)", got, "original")
	}

	got[0] = 'Y'
	again, _ := storage.Get("k")
	if string(again) != "original" {
		t.Errorf("Get() = %q, want %q (returned slice must not alias storage)", again, "original")
	}
}
