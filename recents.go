package livesync

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// defaultRecentsMax bounds a recents list when no limit is given.
const defaultRecentsMax = 10

// Recents is a bounded, persisted most-recent-first list of strings,
// backing "recent searches" and "recent commands" features.
//
// Adding a value that is already present moves it to the front rather
// than duplicating it; the list is trimmed to its maximum length. The
// list is persisted through a [Storage] under a caller-supplied key, and
// every operation returns the storage error explicitly so the caller can
// decide to ignore it (the feature degrades to an unpersisted list).
type Recents struct {
	storage Storage
	key     string
	max     int
	mu      sync.Mutex
}

// NewRecents creates a [Recents] list persisted under key.
//
// max bounds the list length; zero selects the default of 10.
func NewRecents(storage Storage, key string, max int) (*Recents, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	if key == "" {
		return nil, errors.New("recents key is required")
	}
	if max < 0 {
		return nil, fmt.Errorf("recents max must not be negative, got %d", max)
	}
	if max == 0 {
		max = defaultRecentsMax
	}
	return &Recents{storage: storage, key: key, max: max}, nil
}

// Add puts value at the front of the list, deduplicating and trimming.
//
// Empty values are ignored. Returns the storage error, if any; the list
// in storage is left as it was when persisting fails.
func (r *Recents) Add(value string) error {
	if value == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load()
	if err != nil {
		return err
	}

	next := make([]string, 0, len(list)+1)
	next = append(next, value)
	for _, v := range list {
		if v != value {
			next = append(next, v)
		}
	}
	if len(next) > r.max {
		next = next[:r.max]
	}

	return r.save(next)
}

// List returns the persisted list, most recent first.
//
// An absent key yields an empty list and no error.
func (r *Recents) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Clear removes the persisted list.
func (r *Recents) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.storage.Delete(r.key)
}

func (r *Recents) load() ([]string, error) {
	data, err := r.storage.Get(r.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recents %q: %w", r.key, err)
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		// a corrupt entry is treated as absent rather than poisoning
		// the feature forever
		return nil, nil
	}
	return list, nil
}

func (r *Recents) save(list []string) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("recents %q: %w", r.key, err)
	}
	if err := r.storage.Set(r.key, data); err != nil {
		return fmt.Errorf("recents %q: %w", r.key, err)
	}
	return nil
}
