package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// SubjectPrefix is followed by the event type, e.g. studynest.events.question.
	SubjectPrefix = "studynest.events."
	queueGroup    = "fanout"
)

// NATSPublisher publishes events for a Subscriber running in any API
// instance. Delivery is at most once.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) Publish(ctx context.Context, event models.FanoutEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}
	if err := p.conn.Publish(SubjectPrefix+string(event.Type), data); err != nil {
		return errors.Wrap(err, "failed to publish event")
	}
	return nil
}

// Subscriber consumes published events in a queue group, so each event is
// fanned out by exactly one instance.
type Subscriber struct {
	conn        *nats.Conn
	broadcaster Broadcaster
	timeout     time.Duration
	logger      *zap.Logger
	sub         *nats.Subscription
}

func NewSubscriber(conn *nats.Conn, broadcaster Broadcaster, logger *zap.Logger) *Subscriber {
	return &Subscriber{conn: conn, broadcaster: broadcaster, timeout: 30 * time.Second, logger: logger}
}

func (s *Subscriber) Start() error {
	sub, err := s.conn.QueueSubscribe(SubjectPrefix+">", queueGroup, s.handle)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to events")
	}
	s.sub = sub
	s.logger.Info("fan-out subscriber started", zap.String("subject", sub.Subject))
	return nil
}

func (s *Subscriber) handle(msg *nats.Msg) {
	var event models.FanoutEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.Error("dropping malformed event", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.broadcaster.Broadcast(ctx, event); err != nil {
		s.logger.Error("fan-out failed", zap.String("event_id", event.ID.Hex()), zap.Error(err))
	}
}

// Stop drains the subscription and blocks until every event already
// received has been fanned out, or ctx is done.
func (s *Subscriber) Stop(ctx context.Context) error {
	if s.sub == nil {
		return nil
	}
	if err := s.sub.Drain(); err != nil {
		return errors.Wrap(err, "failed to drain subscription")
	}

	// The subscription stays valid until its last handler call returns.
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for s.sub.IsValid() {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "fan-out subscription still draining")
		case <-ticker.C:
		}
	}
	s.logger.Info("fan-out subscriber drained")
	return nil
}
