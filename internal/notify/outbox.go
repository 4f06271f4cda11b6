package notify

import (
	"context"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OutboxStore is the persistence the outbox publisher and worker share.
type OutboxStore interface {
	Enqueue(ctx context.Context, event models.FanoutEvent) error
	Claim(ctx context.Context, lease time.Duration) (*models.OutboxEvent, error)
	Complete(ctx context.Context, id primitive.ObjectID) error
	Release(ctx context.Context, id primitive.ObjectID, cause error) error
	CountPending(ctx context.Context) (int64, error)
}

// OutboxPublisher records events for the Worker instead of fanning out in
// the request.
type OutboxPublisher struct {
	store OutboxStore
}

func NewOutboxPublisher(store OutboxStore) *OutboxPublisher {
	return &OutboxPublisher{store: store}
}

func (p *OutboxPublisher) Publish(ctx context.Context, event models.FanoutEvent) error {
	if err := p.store.Enqueue(ctx, event); err != nil {
		return errors.Wrap(err, "failed to enqueue fan-out event")
	}
	return nil
}

// Worker drains the outbox into a Broadcaster. Events are leased while being
// processed; an event whose lease expires, e.g. after a crash, is picked up
// again. Redelivery is safe because Broadcast is idempotent per event.
type Worker struct {
	store       OutboxStore
	broadcaster Broadcaster
	interval    time.Duration
	lease       time.Duration
	logger      *zap.Logger
}

func NewWorker(store OutboxStore, broadcaster Broadcaster, interval, lease time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		store:       store,
		broadcaster: broadcaster,
		interval:    interval,
		lease:       lease,
		logger:      logger,
	}
}

// Run polls the outbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("outbox worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.DrainOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("outbox drain stopped early", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// DrainOnce delivers claimable events until the outbox is empty or a
// delivery fails. A failed event is released for a later attempt. It returns
// the number of events delivered.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	delivered := 0
	defer w.reportPending(ctx)

	for ctx.Err() == nil {
		entry, err := w.store.Claim(ctx, w.lease)
		if err != nil {
			return delivered, errors.Wrap(err, "failed to claim outbox event")
		}
		if entry == nil {
			return delivered, nil
		}

		if err := w.broadcaster.Broadcast(ctx, entry.Event); err != nil {
			w.logger.Error("fan-out failed",
				zap.String("outbox_id", entry.ID.Hex()),
				zap.Int("attempts", entry.Attempts),
				zap.Error(err),
			)
			if relErr := w.store.Release(context.WithoutCancel(ctx), entry.ID, err); relErr != nil {
				w.logger.Error("failed to release outbox event", zap.String("outbox_id", entry.ID.Hex()), zap.Error(relErr))
			}
			return delivered, err
		}

		if err := w.store.Complete(ctx, entry.ID); err != nil {
			return delivered, errors.Wrap(err, "failed to complete outbox event")
		}
		delivered++
	}
	return delivered, ctx.Err()
}

func (w *Worker) reportPending(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	pending, err := w.store.CountPending(ctx)
	if err != nil {
		w.logger.Debug("failed to count outbox", zap.Error(err))
		return
	}
	outboxPending.Set(float64(pending))
}
