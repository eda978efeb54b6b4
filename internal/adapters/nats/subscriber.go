package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/manzaspots/manza/internal/core/domain"
	"github.com/manzaspots/manza/internal/core/ports"
)

var _ ports.EventSubscriber = (*Subscriber)(nil)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// consumerIdle is how long a replica's consumer outlives its last
// subscription before the server removes it.
const consumerIdle = 5 * time.Minute

// ReplicaDurable names this process's consumer. Each API replica needs
// its own consumer so that every replica sees every change; a shared
// durable would let only the first replica bind.
func ReplicaDurable(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = fmt.Sprintf("pid%d", os.Getpid())
	}
	return replicaDurable(prefix, host)
}

// replicaDurable joins prefix and host, replacing characters JetStream
// rejects in consumer names.
func replicaDurable(prefix, host string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '*' || r == '>' || r == '/' || r == '\\':
			return '_'
		case r <= ' ':
			return '_'
		}
		return r
	}, host)
	return prefix + "-" + clean
}

// NewSubscriber creates a subscriber whose consumer is named durable.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeChanges delivers change events published from now on to
// handler. Messages the handler fails on are redelivered up to three
// times.
func (s *Subscriber) SubscribeChanges(ctx context.Context, handler func(ctx context.Context, ev domain.ChangeEvent) error) error {
	sub, err := s.js.Subscribe(ChangeSubjectPrefix+">", func(msg *nats.Msg) {
		var ev domain.ChangeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(s.durable),
		nats.DeliverNew(),
		nats.InactiveThreshold(consumerIdle),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
