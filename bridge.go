package livesync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PushResult is the server's reply to an acknowledged push: either an ok,
// optionally carrying a payload, or an error with a reason.
type PushResult struct {
	// OK reports whether the server accepted the event.
	OK bool `json:"ok"`

	// Reason describes the rejection when OK is false.
	Reason string `json:"reason,omitempty"`

	// Payload is the server's reply body, if any. For optimistic writes
	// this is the confirmed item.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bridge is the outbound half of the realtime contract: it delivers
// client events to the server.
//
// The transport behind a Bridge is the host's concern; livesync only
// requires the two delivery modes. internal/wsbridge provides a
// websocket implementation, and tests supply in-process fakes.
type Bridge interface {
	// Push delivers an event without waiting for acknowledgement.
	Push(ctx context.Context, event string, payload any) error

	// PushWait delivers an event and waits for the server's reply.
	PushWait(ctx context.Context, event string, payload any) (PushResult, error)
}

// PushOptimistic runs the optimistic-write round trip for one item:
// insert it into the store tagged with a fresh temp ID, push it over the
// session's [Bridge], then reconcile on success or roll back on failure.
//
// On an ok reply the server's payload, when present, becomes the
// confirmed item; an empty payload confirms the item as sent. On a
// rejected reply or transport error the optimistic entry is removed and
// the error returned.
//
// Returns the temp ID that was used, so callers can correlate a later
// out-of-band reconcile or rollback event.
func PushOptimistic[T any](ctx context.Context, s *Store[T], event string, item T) (string, error) {
	bridge := s.session.bridge
	if bridge == nil {
		return "", fmt.Errorf("store %q: session has no bridge", s.name)
	}

	tempID := uuid.NewString()
	s.AddOptimistic(tempID, item)

	payload := struct {
		TempID string `json:"temp_id"`
		Item   T      `json:"item"`
	}{TempID: tempID, Item: item}

	res, err := bridge.PushWait(ctx, event, payload)
	if err != nil {
		s.Rollback(tempID)
		return tempID, fmt.Errorf("store %q: push %q: %w", s.name, event, err)
	}
	if !res.OK {
		s.Rollback(tempID)
		return tempID, fmt.Errorf("store %q: push %q rejected: %s", s.name, event, res.Reason)
	}

	real := item
	if len(res.Payload) > 0 {
		if err := json.Unmarshal(res.Payload, &real); err != nil {
			// accepted but unreadable reply: keep the optimistic value
			s.logger.Warn("ignoring undecodable push reply", "event", event, "error", err)
			real = item
		}
	}
	s.Reconcile(tempID, real)
	return tempID, nil
}
