package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StartMockRealtimeServer runs a minimal realtime server speaking the
// livesync wire contract: it greets each connection with a presence sync
// and a store sync, broadcasts a new message every few seconds, and
// acknowledges every ref-carrying push with an ok reply.
// Call this in a goroutine before connecting the bridge.
func StartMockRealtimeServer(addr string) {
	var nextID int64 = 100

	http.HandleFunc("/livesync", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		var writeMu sync.Mutex
		send := func(event string, payload any) {
			data, _ := json.Marshal(payload)
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.WriteJSON(map[string]any{"event": event, "payload": json.RawMessage(data)})
		}

		send("presence:sync", map[string]any{
			"topic": "room:lobby",
			"users": []map[string]any{
				{"id": "u1", "name": "Ada"},
				{"id": "u2", "name": "Grace", "typing": true},
			},
		})
		send("store:sync", map[string]any{
			"store":  "messages",
			"action": "set",
			"payload": []map[string]any{
				{"id": "1", "body": "welcome", "ts": 1},
				{"id": "2", "body": "to the lobby", "ts": 2},
			},
		})

		// background broadcaster: a new message every few seconds
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(3 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					nextID++
					send("store:sync", map[string]any{
						"store":  "messages",
						"action": "append",
						"payload": map[string]any{
							"id":   strconv.FormatInt(nextID, 10),
							"body": "broadcast",
							"ts":   time.Now().Unix(),
						},
					})
				}
			}
		}()

		for {
			var f struct {
				Event   string          `json:"event"`
				Ref     string          `json:"ref"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Ref == "" {
				continue // heartbeat or fire-and-forget push
			}

			// acknowledge the push, echoing the item back with a server id
			var body struct {
				Item map[string]any `json:"item"`
			}
			_ = json.Unmarshal(f.Payload, &body)
			if body.Item != nil {
				nextID++
				body.Item["id"] = strconv.FormatInt(nextID, 10)
				body.Item["ts"] = time.Now().Unix()
			}
			item, _ := json.Marshal(body.Item)
			reply, _ := json.Marshal(map[string]any{"ok": true, "payload": json.RawMessage(item)})
			writeMu.Lock()
			_ = conn.WriteJSON(map[string]any{
				"event":   "reply",
				"ref":     f.Ref,
				"payload": json.RawMessage(reply),
			})
			writeMu.Unlock()

			// simulate another client noticing the new message
			if rand.Intn(2) == 0 && body.Item != nil {
				send("presence:update", map[string]any{
					"topic":   "room:lobby",
					"user_id": "u1",
					"meta":    map[string]any{"typing": rand.Intn(2) == 0},
				})
			}
		}
	})

	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("mock server failed", "error", err)
	}
}
