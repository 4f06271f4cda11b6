package notify

import (
	"context"

	"github.com/anonto42/studynest/backend/internal/models"
)

// Publisher hands a forum event to the fan-out. It is the forum's only
// dependency on notification delivery.
type Publisher interface {
	Publish(ctx context.Context, event models.FanoutEvent) error
}

// Broadcaster performs the fan-out itself. *Service implements it.
type Broadcaster interface {
	Broadcast(ctx context.Context, event models.FanoutEvent) error
}

// DirectPublisher fans out synchronously inside the caller's request.
type DirectPublisher struct {
	broadcaster Broadcaster
}

func NewDirectPublisher(b Broadcaster) *DirectPublisher {
	return &DirectPublisher{broadcaster: b}
}

func (p *DirectPublisher) Publish(ctx context.Context, event models.FanoutEvent) error {
	return p.broadcaster.Broadcast(ctx, event)
}
