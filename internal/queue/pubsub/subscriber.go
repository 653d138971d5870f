// Package pubsub receives object notifications from a Pub/Sub subscription.
package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// Message is the subset of a Pub/Sub message handlers see.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes one message. A nil return acks it; an error nacks it for redelivery.
type Handler func(ctx context.Context, msg Message) error

// Subscriber pulls messages and dispatches them to a Handler.
type Subscriber struct {
	sub    *pubsub.Subscription
	logger *zap.Logger
}

// New wraps sub. MaxOutstandingMessages is left to the caller.
func New(sub *pubsub.Subscription, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{sub: sub, logger: logger}
}

// Receive blocks until ctx is done or the subscription fails.
func (s *Subscriber) Receive(ctx context.Context, handle Handler) error {
	if s.sub == nil {
		return fmt.Errorf("pubsub subscription is not configured")
	}
	err := s.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		msg := Message{ID: m.ID, Data: m.Data, Attributes: m.Attributes}
		if err := handle(ctx, msg); err != nil {
			s.logger.Warn("message handling failed, nacking",
				zap.String("message_id", m.ID),
				zap.Error(err),
			)
			m.Nack()
			return
		}
		m.Ack()
	})
	if err != nil {
		return fmt.Errorf("receive from %s: %w", s.sub.String(), err)
	}
	return nil
}
