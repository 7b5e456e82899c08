package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jpalmerr/livesync"
)

const (
	defaultHeartbeat  = 30 * time.Second
	defaultMaxBackoff = 30 * time.Second
	initialBackoff    = time.Second

	// eventReply resolves a pending PushWait; eventHeartbeat keeps the
	// connection alive through idle proxies.
	eventReply     = "reply"
	eventHeartbeat = "heartbeat"
)

// ErrNotConnected is returned by Push and PushWait while the bridge has
// no live connection.
var ErrNotConnected = errors.New("wsbridge: not connected")

// DispatchFunc receives every inbound frame that is not a reply.
// Session.Dispatch satisfies this signature.
type DispatchFunc func(event string, payload []byte) error

// frame is the wire format: one JSON object per websocket text message.
type frame struct {
	Event   string          `json:"event"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bridge is a websocket-backed [livesync.Bridge].
//
// Create with [New], then call [Bridge.Run] in a goroutine (or let it
// block, like an HTTP server). Run dials, reads frames, and redials with
// exponential backoff until its context is cancelled. Push and PushWait
// fail with [ErrNotConnected] while no connection is live; in-flight
// PushWait calls fail when the connection drops.
type Bridge struct {
	url       string
	header    http.Header
	dispatch  DispatchFunc
	logger    *slog.Logger
	heartbeat time.Duration

	mu   sync.Mutex // guards conn and all writes to it
	conn *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan livesync.PushResult
}

// Option configures a [Bridge] during construction with [New].
type Option func(*Bridge) error

// WithLogger sets a custom [slog.Logger]. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		b.logger = logger
		return nil
	}
}

// WithHeader sets HTTP headers sent with the websocket handshake, for
// authentication tokens and the like.
func WithHeader(header http.Header) Option {
	return func(b *Bridge) error {
		b.header = header
		return nil
	}
}

// WithHeartbeat sets the interval between heartbeat frames.
//
// Defaults to 30 seconds. Returns an error if the interval is zero or
// negative.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Bridge) error {
		if d <= 0 {
			return errors.New("heartbeat interval must be positive")
		}
		b.heartbeat = d
		return nil
	}
}

// New creates a [Bridge] for the given websocket URL.
//
// dispatch receives every non-reply inbound frame; it must not be nil.
// The bridge does not connect until [Bridge.Run] is called.
func New(url string, dispatch DispatchFunc, opts ...Option) (*Bridge, error) {
	if url == "" {
		return nil, errors.New("url is required")
	}
	if dispatch == nil {
		return nil, errors.New("dispatch function is required")
	}

	b := &Bridge{
		url:       url,
		dispatch:  dispatch,
		heartbeat: defaultHeartbeat,
		pending:   make(map[string]chan livesync.PushResult),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b, nil
}

// Run connects and serves the bridge until ctx is cancelled.
//
// Run blocks. On connection loss it fails all in-flight PushWait calls,
// then redials with exponential backoff (1s doubling to 30s). Returns
// nil on context cancellation.
func (b *Bridge) Run(ctx context.Context) error {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, b.header)
		if err != nil {
			b.logger.Warn("dial failed", "url", b.url, "backoff", backoff.String(), "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, defaultMaxBackoff)
			continue
		}

		b.logger.Info("connected", "url", b.url)
		backoff = initialBackoff

		b.mu.Lock()
		b.conn = conn
		b.mu.Unlock()

		err = b.serve(ctx, conn)

		b.mu.Lock()
		b.conn = nil
		b.mu.Unlock()
		conn.Close()
		b.failPending(ErrNotConnected)

		if ctx.Err() != nil {
			return nil
		}
		b.logger.Warn("connection lost", "url", b.url, "error", err)
	}
}

// serve reads frames until the connection fails or ctx is cancelled.
func (b *Bridge) serve(ctx context.Context, conn *websocket.Conn) error {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go b.heartbeatLoop(serveCtx)
	go func() {
		// unblock ReadMessage when the context is cancelled
		<-serveCtx.Done()
		conn.SetReadDeadline(time.Now())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			b.logger.Warn("ignoring malformed frame", "error", err)
			continue
		}

		if f.Event == eventReply {
			b.resolve(f.Ref, f.Payload)
			continue
		}

		if err := b.dispatch(f.Event, f.Payload); err != nil {
			b.logger.Warn("dispatch failed", "event", f.Event, "error", err)
		}
	}
}

func (b *Bridge) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.write(frame{Event: eventHeartbeat}); err != nil {
				b.logger.Debug("heartbeat failed", "error", err)
				return
			}
		}
	}
}

// Push delivers an event without waiting for acknowledgement.
func (b *Bridge) Push(ctx context.Context, event string, payload any) error {
	f, err := newFrame(event, "", payload)
	if err != nil {
		return err
	}
	return b.write(f)
}

// PushWait delivers an event and waits for the server's reply, matching
// it by a generated ref.
//
// Returns the decoded [livesync.PushResult], or an error when the
// context ends or the connection drops before the reply arrives.
func (b *Bridge) PushWait(ctx context.Context, event string, payload any) (livesync.PushResult, error) {
	ref := uuid.NewString()
	f, err := newFrame(event, ref, payload)
	if err != nil {
		return livesync.PushResult{}, err
	}

	ch := make(chan livesync.PushResult, 1)
	b.pendingMu.Lock()
	b.pending[ref] = ch
	b.pendingMu.Unlock()

	if err := b.write(f); err != nil {
		b.drop(ref)
		return livesync.PushResult{}, err
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return livesync.PushResult{}, ErrNotConnected
		}
		return res, nil
	case <-ctx.Done():
		b.drop(ref)
		return livesync.PushResult{}, ctx.Err()
	}
}

// write sends one frame under the write lock.
func (b *Bridge) write(f frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return ErrNotConnected
	}
	if err := b.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("wsbridge: write %q: %w", f.Event, err)
	}
	return nil
}

// resolve completes the PushWait registered under ref. Replies with no
// matching ref (duplicates, or replies for dropped waiters) are logged
// and discarded.
func (b *Bridge) resolve(ref string, payload json.RawMessage) {
	b.pendingMu.Lock()
	ch, ok := b.pending[ref]
	delete(b.pending, ref)
	b.pendingMu.Unlock()

	if !ok {
		b.logger.Debug("reply with no pending ref", "ref", ref)
		return
	}

	var res livesync.PushResult
	if err := json.Unmarshal(payload, &res); err != nil {
		res = livesync.PushResult{OK: false, Reason: fmt.Sprintf("malformed reply: %v", err)}
	}
	ch <- res
}

// drop abandons the waiter registered under ref.
func (b *Bridge) drop(ref string) {
	b.pendingMu.Lock()
	delete(b.pending, ref)
	b.pendingMu.Unlock()
}

// failPending closes every in-flight waiter, failing its PushWait.
func (b *Bridge) failPending(err error) {
	b.pendingMu.Lock()
	pending := b.pending
	b.pending = make(map[string]chan livesync.PushResult)
	b.pendingMu.Unlock()

	if len(pending) > 0 {
		b.logger.Debug("failing in-flight pushes", "count", len(pending), "error", err)
	}
	for _, ch := range pending {
		close(ch)
	}
}

func newFrame(event, ref string, payload any) (frame, error) {
	if event == "" {
		return frame{}, errors.New("wsbridge: event name is required")
	}
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return frame{}, fmt.Errorf("wsbridge: marshal %q payload: %w", event, err)
		}
		raw = data
	}
	return frame{Event: event, Ref: ref, Payload: raw}, nil
}
