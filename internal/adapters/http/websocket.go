package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/manzaspots/manza/internal/adapters/nats"
	"github.com/manzaspots/manza/internal/pkg/metrics"
)

// wsMessage is sent by clients to pick which feeds they receive.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "spots" | "routes"
}

var wsChannels = map[string]string{
	"spots":  natsadapter.BroadcastSubjectPrefix + "spot",
	"routes": natsadapter.BroadcastSubjectPrefix + "route",
}

// WebSocketHandler relays public spot and route change events to
// connected clients. A new connection receives both channels until it
// unsubscribes from one:
//
//	{"action":"unsubscribe","channel":"routes"}
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("remote", c.RemoteAddr().String())
		log.Info("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		subs := make(map[string]*nats.Subscription) // channel -> subscription
		defer func() {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			log.Info("ws client disconnected")
		}()

		if nc == nil {
			_ = writeJSON(map[string]string{"error": "live updates unavailable"})
			return
		}
		for ch, subject := range wsChannels {
			s, err := nc.Subscribe(subject, relay)
			if err != nil {
				log.Error("ws subscribe failed", "subject", subject, "error", err)
				return
			}
			subs[ch] = s
		}

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				return
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			subject, ok := wsChannels[m.Channel]
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[m.Channel]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "channel": m.Channel})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[m.Channel] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "channel": m.Channel})

			case "unsubscribe":
				s, exists := subs[m.Channel]
				if !exists {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + m.Channel})
					continue
				}
				_ = s.Unsubscribe()
				delete(subs, m.Channel)
				_ = writeJSON(map[string]string{"status": "unsubscribed", "channel": m.Channel})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}
	}
}
