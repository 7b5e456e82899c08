package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/livesync"
	"github.com/jpalmerr/livesync/internal/wsbridge"
)

// Message is the item type the demo collection carries.
type Message struct {
	ID   string `json:"id"`
	Body string `json:"body"`
	TS   int64  `json:"ts"`
}

func main() {
	// start mock server (see mock_server.go)
	go StartMockRealtimeServer(":9999")
	time.Sleep(100 * time.Millisecond)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	session, err := livesync.New(livesync.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	bridge, err := wsbridge.New("ws://localhost:9999/livesync", session.Dispatch,
		wsbridge.WithLogger(logger),
		wsbridge.WithHeartbeat(10*time.Second),
	)
	if err != nil {
		slog.Error("failed to create bridge", "error", err)
		os.Exit(1)
	}

	msgs, err := livesync.NewStore(session, "messages",
		livesync.WithKey(func(m Message) string { return m.ID }),
		livesync.WithSort(func(a, b Message) bool { return a.TS < b.TS }),
	)
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}

	lobby, err := session.Track("room:lobby")
	if err != nil {
		slog.Error("failed to track topic", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := bridge.Run(ctx); err != nil {
			slog.Error("bridge stopped", "error", err)
		}
	}()

	// print every store and presence change
	updates := msgs.Subscribe()
	defer msgs.Unsubscribe(updates)
	present := lobby.Subscribe()
	defer lobby.Unsubscribe(present)

	// after a moment, send an optimistic message of our own
	go func() {
		time.Sleep(2 * time.Second)
		tempID, err := livesync.PushOptimistic(ctx, msgs, "message:new", Message{Body: "hello from the demo"})
		if err != nil {
			logger.Warn("optimistic push failed", "error", err)
			return
		}
		logger.Info("message confirmed", "temp_id", tempID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case entries := <-updates:
			logger.Info("messages changed", "count", len(entries))
			for _, e := range entries {
				logger.Info("  message", "id", e.Value.ID, "body", e.Value.Body, "optimistic", e.Optimistic())
			}
		case users := <-present:
			typing := 0
			for _, u := range users {
				if u.Typing {
					typing++
				}
			}
			logger.Info("lobby changed", "present", len(users), "typing", typing)
		}
	}
}
