// Package livesync provides client-side state synchronization for
// realtime, server-pushed collections.
//
// livesync mirrors collections that a server owns and broadcasts, applies
// optimistic local mutations while awaiting confirmation, reconciles
// confirmations against in-flight optimistic writes, and tracks per-topic
// presence (who is connected, who is typing). It is the client half of a
// LiveView/PubSub-style realtime contract: the server owns durable state
// and consistency; livesync owns the local, observable view of it.
//
// # Quick Start
//
// Create a session, register a store, and feed it server events:
//
//	s, _ := livesync.New()
//	defer s.Close()
//
//	msgs, _ := livesync.NewStore(s, "messages",
//	    livesync.WithKey(func(m Message) string { return m.ID }),
//	    livesync.WithSort(func(a, b Message) bool { return a.SentAt.Before(b.SentAt) }),
//	)
//
//	// inbound server events are routed by name
//	s.Dispatch("store:sync", payload)
//
// # Sessions
//
// A [Session] owns the name-to-store and topic-to-presence registries and
// routes inbound events to them via [Session.Dispatch]. It is an explicit
// object rather than package-level state: create one per connection or page
// lifetime and call [Session.Close] when done.
//
// Sessions use the functional options pattern for configuration:
//
//	s, err := livesync.New(
//	    livesync.WithLogger(logger),
//	    livesync.WithBridge(bridge),
//	    livesync.WithStorage(storage),
//	)
//
// # Optimistic Updates
//
// [Store.AddOptimistic] inserts a locally-created item tagged with a
// temporary ID before the server has confirmed it. When the confirmation
// arrives, [Store.Reconcile] replaces the tagged entry with the server's
// version; if the server rejects the write, [Store.Rollback] removes it.
// A confirmation whose temporary ID is unknown to this client is treated
// as another client's insert and appended.
//
// [PushOptimistic] packages the full round trip: tag, push over the
// session's [Bridge], then reconcile or roll back based on the reply.
//
// # Presence
//
// [Presence] tracks the set of users associated with a topic. Joins are
// idempotent by user ID; derived views ([Presence.Typing],
// [Presence.Count], [Presence.IsOnline]) are computed from the current
// set. [TypingTracker] debounces input events into start/stop typing
// transitions for feeding presence metadata back to the server.
//
// # Architecture
//
// livesync consists of several internal packages (under internal/):
//
//   - internal/wsbridge: websocket Bridge implementation with heartbeats,
//     reply correlation, and reconnect backoff
//   - internal/sqlitekv: durable Storage backend on sqlite
//   - internal/ringlog: bounded ring-buffer slog handler for inspection
//
// The internal packages are not part of the public API and may change
// without notice.
package livesync
