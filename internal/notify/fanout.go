// Package notify materializes forum events into per-user notifications and
// serves the notification feed.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// FeedLimit caps the number of notifications returned by the feed.
const FeedLimit = 50

// UserDirectory lists fan-out recipients.
type UserDirectory interface {
	// ListRecipients returns every user other than exclude that existed at asOf.
	ListRecipients(ctx context.Context, exclude primitive.ObjectID, asOf time.Time) ([]primitive.ObjectID, error)
}

// Store persists notifications.
type Store interface {
	InsertMany(ctx context.Context, notifications []models.Notification) (int, error)
	ListRecent(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// Feed is a user's view of their notifications.
type Feed struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}

type Service struct {
	users  UserDirectory
	store  Store
	logger *zap.Logger
}

func NewService(users UserDirectory, store Store, logger *zap.Logger) *Service {
	return &Service{users: users, store: store, logger: logger}
}

// Broadcast writes one unread notification for every user except the actor,
// in a single bulk insert. Recipients are the users that existed when the
// event occurred, however late delivery runs. Running the same event twice
// does not duplicate notifications.
func (s *Service) Broadcast(ctx context.Context, event models.FanoutEvent) (err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		fanoutEventsTotal.WithLabelValues(string(event.Type), result).Inc()
		fanoutDuration.Observe(time.Since(start).Seconds())
	}()

	if !event.Type.Valid() {
		return fmt.Errorf("unknown event type %q", event.Type)
	}
	if event.ID.IsZero() {
		return fmt.Errorf("event has no id")
	}

	createdAt := event.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	recipients, err := s.users.ListRecipients(ctx, event.ActorID, createdAt)
	if err != nil {
		return errors.Wrap(err, "failed to list recipients")
	}
	if len(recipients) == 0 {
		return nil
	}

	title, message := render(event)

	notifications := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		notifications = append(notifications, models.Notification{
			UserID:     recipient,
			EventID:    event.ID,
			Title:      title,
			Message:    message,
			Type:       event.Type,
			QuestionID: event.QuestionID,
			AnswerID:   event.AnswerID,
			IsRead:     false,
			CreatedAt:  createdAt,
		})
	}

	inserted, err := s.store.InsertMany(ctx, notifications)
	notificationsCreatedTotal.Add(float64(inserted))
	if err != nil {
		return errors.Wrapf(err, "failed to insert notifications (%d of %d written)", inserted, len(notifications))
	}

	s.logger.Debug("event fanned out",
		zap.String("event_id", event.ID.Hex()),
		zap.String("type", string(event.Type)),
		zap.Int("recipients", len(recipients)),
		zap.Int("inserted", inserted),
	)
	return nil
}

func render(event models.FanoutEvent) (title, message string) {
	actor := event.ActorName
	if actor == "" {
		actor = "Someone"
	}
	switch event.Type {
	case models.NotificationTypeQuestion:
		return "New Question", fmt.Sprintf("%s asked a new question", actor)
	case models.NotificationTypeAnswer:
		return "New Answer", fmt.Sprintf("%s answered a question", actor)
	default:
		return "", ""
	}
}

// GetMyNotifications returns the newest FeedLimit notifications and the
// user's total unread count, which is not bounded by the page size.
func (s *Service) GetMyNotifications(ctx context.Context, userID primitive.ObjectID) (*Feed, error) {
	notifications, err := s.store.ListRecent(ctx, userID, FeedLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count unread notifications")
	}
	return &Feed{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkAsRead marks one of the user's notifications read. Repeated calls,
// unknown ids and other users' notifications are silent no-ops.
func (s *Service) MarkAsRead(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	if _, err := s.store.MarkRead(ctx, notificationID, userID); err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}
	return nil
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to mark notifications read")
	}
	return n, nil
}
