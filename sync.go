package livesync

import (
	"encoding/json"
	"fmt"
)

// Broadcast action tags carried in "store:sync" events.
const (
	actionSet     = "set"
	actionAppend  = "append"
	actionPrepend = "prepend"
	actionUpdate  = "update"
	actionRemove  = "remove"
)

// SyncAction is one decoded store mutation from a server broadcast.
//
// SyncAction is a closed union: the only implementations are [SetAction],
// [AppendAction], [PrependAction], [UpdateAction], and [RemoveAction].
// Use a type switch for exhaustive handling; apply one with [Store.Apply].
type SyncAction[T any] interface {
	applyTo(s *Store[T])
}

// SetAction replaces the whole collection.
type SetAction[T any] struct {
	Items []T
}

func (a SetAction[T]) applyTo(s *Store[T]) {
	s.Set(a.Items)
}

// AppendAction inserts one item at the end of the collection.
type AppendAction[T any] struct {
	Item T
}

func (a AppendAction[T]) applyTo(s *Store[T]) {
	s.Append(a.Item)
}

// PrependAction inserts one item at the front of the collection.
type PrependAction[T any] struct {
	Item T
}

func (a PrependAction[T]) applyTo(s *Store[T]) {
	s.Prepend(a.Item)
}

// UpdateAction overlays partial JSON changes onto the item with the given
// ID. Fields absent from Changes are left as they are (shallow merge).
type UpdateAction[T any] struct {
	ID      string
	Changes json.RawMessage
}

func (a UpdateAction[T]) applyTo(s *Store[T]) {
	if err := s.patchItem(a.ID, a.Changes); err != nil {
		s.logger.Warn("failed to apply update", "id", a.ID, "error", err)
	}
}

// RemoveAction deletes the item with the given ID.
type RemoveAction[T any] struct {
	ID string
}

func (a RemoveAction[T]) applyTo(s *Store[T]) {
	s.Remove(a.ID)
}

// decodeAction turns a broadcast action tag and raw payload into a typed
// [SyncAction]. An unknown tag decodes to (nil, nil): the caller decides
// how loudly to ignore it.
func decodeAction[T any](action string, payload json.RawMessage) (SyncAction[T], error) {
	switch action {
	case actionSet:
		var items []T
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, err
		}
		return SetAction[T]{Items: items}, nil

	case actionAppend:
		var item T
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, err
		}
		return AppendAction[T]{Item: item}, nil

	case actionPrepend:
		var item T
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, err
		}
		return PrependAction[T]{Item: item}, nil

	case actionUpdate:
		var body struct {
			ID      string          `json:"id"`
			Changes json.RawMessage `json:"changes"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, err
		}
		if body.ID == "" {
			return nil, fmt.Errorf("update payload has no id")
		}
		return UpdateAction[T]{ID: body.ID, Changes: body.Changes}, nil

	case actionRemove:
		id, err := decodeID(payload)
		if err != nil {
			return nil, err
		}
		return RemoveAction[T]{ID: id}, nil

	default:
		return nil, nil
	}
}

// decodeID accepts either a bare JSON string or an {"id": ...} object,
// since servers emit both shapes for remove broadcasts.
func decodeID(payload json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(payload, &id); err == nil {
		return id, nil
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", err
	}
	if body.ID == "" {
		return "", fmt.Errorf("remove payload has no id")
	}
	return body.ID, nil
}
