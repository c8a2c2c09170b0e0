// Package events publishes review lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectReviewCreated = "reviews.created"
	SubjectReviewUpdated = "reviews.updated"
	SubjectReviewDeleted = "reviews.deleted"
)

// Event is the envelope published on every subject.
type Event struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Publisher is safe to use as a nil pointer or without a connection; it then
// only logs.
type Publisher struct {
	nc  *nats.Conn
	log *zap.Logger
}

// Connect dials NATS. An empty url yields a stub publisher.
func Connect(url string, log *zap.Logger) (*Publisher, error) {
	log = log.With(zap.String("component", "events"))
	if url == "" {
		log.Warn("NATS_URL not set, review events will not be published")
		return &Publisher{log: log}, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("movie-catalog"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}

	log.Info("NATS publisher initialised", zap.String("url", url))
	return &Publisher{nc: nc, log: log}, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(nc *nats.Conn, log *zap.Logger) *Publisher {
	return &Publisher{nc: nc, log: log}
}

// Publish marshals payload into an Event and sends it on subject.
func (p *Publisher) Publish(_ context.Context, subject string, payload any) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	evt := Event{
		EventID:    uuid.NewString(),
		EventType:  subject,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}

	if p.nc == nil {
		if p.log != nil {
			p.log.Debug("NATS stub: skipping publish", zap.String("subject", subject), zap.String("event_id", evt.EventID))
		}
		return nil
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, body); err != nil {
		return err
	}

	p.log.Debug("event published", zap.String("subject", subject), zap.String("event_id", evt.EventID))
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
