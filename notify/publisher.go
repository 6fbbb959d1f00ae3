// Package notify publishes checklist lifecycle events to NATS. Each
// event type goes to its own subject so interested clients can
// subscribe per transition. Publishing is strictly best effort: a
// missing connection or a failed publish never fails the store
// operation that produced the event.
package notify

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Czernobog023/duolist/checklist"
)

// Publisher forwards checklist events to NATS.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewPublisher creates a Publisher. A nil connection yields a
// publisher that silently drops every event (graceful degradation
// when NATS is not configured).
func NewPublisher(nc *nats.Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{nc: nc, logger: logger}
}

// Publish sends the event to its subject as JSON.
func (p *Publisher) Publish(ev checklist.Event) {
	if p == nil || p.nc == nil || ev == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("Failed to marshal event", "subject", ev.Subject(), "error", err)
		return
	}

	if err := p.nc.Publish(ev.Subject(), data); err != nil {
		p.logger.Warn("Failed to publish event", "subject", ev.Subject(), "error", err)
	}
}

// Sink adapts the publisher to the store's event sink signature.
func (p *Publisher) Sink() checklist.EventSink {
	return func(ev checklist.Event) { p.Publish(ev) }
}
