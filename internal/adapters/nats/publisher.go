package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/ports"
)

const (
	// ChangeStream holds spot and route change events.
	ChangeStream = "MANZA_CHANGES"
	// ChangeSubjectPrefix is followed by the event type, e.g. manza.changes.spot.approved.
	ChangeSubjectPrefix = "manza.changes."
	// BroadcastSubjectPrefix is followed by the entity, e.g. manza.updates.spot.
	// These plain subjects carry public events for WebSocket fan-out.
	BroadcastSubjectPrefix = "manza.updates."
)

// ChangeSubject returns the subject an event of type t is published on.
func ChangeSubject(t domain.EventType) string {
	return ChangeSubjectPrefix + string(t)
}

// BroadcastSubject returns the fan-out subject for an event of type t.
func BroadcastSubject(t domain.EventType) string {
	entity, _, _ := strings.Cut(string(t), ".")
	return BroadcastSubjectPrefix + entity
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      ChangeStream,
		Subjects:  []string{ChangeSubjectPrefix + ">"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishChange persists the event on the change stream and, when the
// event is public, also broadcasts it for live subscribers.
func (p *Publisher) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(ChangeSubject(ev.Type), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	if ev.Public() {
		return p.conn.Publish(BroadcastSubject(ev.Type), data)
	}
	return nil
}

// IsConnected reports the connection state for readiness checks.
func (p *Publisher) IsConnected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
