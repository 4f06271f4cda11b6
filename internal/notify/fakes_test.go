package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/studynest/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeDirectory treats ids without a join time as existing from the start.
type fakeDirectory struct {
	mu     sync.Mutex
	ids    []primitive.ObjectID
	joined map[primitive.ObjectID]time.Time
	err    error
}

func (d *fakeDirectory) join(id primitive.ObjectID, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.joined == nil {
		d.joined = make(map[primitive.ObjectID]time.Time)
	}
	d.ids = append(d.ids, id)
	d.joined[id] = at
}

func (d *fakeDirectory) ListRecipients(_ context.Context, exclude primitive.ObjectID, asOf time.Time) ([]primitive.ObjectID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	var out []primitive.ObjectID
	for _, id := range d.ids {
		if id == exclude {
			continue
		}
		if at, ok := d.joined[id]; ok && at.After(asOf) {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

type eventKey struct {
	user  primitive.ObjectID
	event primitive.ObjectID
}

// memoryStore mirrors the Mongo repository, including the unique
// {user_id, event_id} index.
type memoryStore struct {
	mu            sync.Mutex
	notifications []models.Notification
	seen          map[eventKey]bool
	insertErr     error
	insertCalls   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{seen: make(map[eventKey]bool)}
}

func (s *memoryStore) InsertMany(_ context.Context, batch []models.Notification) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	inserted := 0
	for _, n := range batch {
		key := eventKey{n.UserID, n.EventID}
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		n.ID = primitive.NewObjectID()
		s.notifications = append(s.notifications, n)
		inserted++
	}
	return inserted, nil
}

func (s *memoryStore) ListRecent(_ context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Notification{}
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) MarkRead(_ context.Context, id, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID == id && n.UserID == userID && !n.IsRead {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) MarkAllRead(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.notifications {
		if s.notifications[i].UserID == userID && !s.notifications[i].IsRead {
			s.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) forUser(userID primitive.ObjectID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

type memoryOutbox struct {
	mu      sync.Mutex
	entries []*models.OutboxEvent
}

func (o *memoryOutbox) Enqueue(_ context.Context, event models.FanoutEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &models.OutboxEvent{
		ID:        primitive.NewObjectID(),
		Event:     event,
		Status:    models.OutboxStatusPending,
		CreatedAt: time.Now(),
	})
	return nil
}

func (o *memoryOutbox) Claim(_ context.Context, lease time.Duration) (*models.OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, e := range o.entries {
		expired := e.Status == models.OutboxStatusProcessing && e.ClaimedAt != nil && e.ClaimedAt.Before(now.Add(-lease))
		if e.Status == models.OutboxStatusPending || expired {
			e.Status = models.OutboxStatusProcessing
			e.ClaimedAt = &now
			e.Attempts++
			claimed := *e
			return &claimed, nil
		}
	}
	return nil, nil
}

func (o *memoryOutbox) Complete(_ context.Context, id primitive.ObjectID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.entries {
		if e.ID == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *memoryOutbox) Release(_ context.Context, id primitive.ObjectID, cause error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.ID == id {
			e.Status = models.OutboxStatusPending
			e.ClaimedAt = nil
			if cause != nil {
				e.LastError = cause.Error()
			}
		}
	}
	return nil
}

func (o *memoryOutbox) CountPending(context.Context) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return int64(len(o.entries)), nil
}

func (o *memoryOutbox) snapshot() []models.OutboxEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.OutboxEvent, len(o.entries))
	for i, e := range o.entries {
		out[i] = *e
	}
	return out
}

// flakyBroadcaster fails the first failures calls, then delegates.
type flakyBroadcaster struct {
	next     Broadcaster
	failures int
	calls    int
}

func (b *flakyBroadcaster) Broadcast(ctx context.Context, event models.FanoutEvent) error {
	b.calls++
	if b.calls <= b.failures {
		return errors.New("store unavailable")
	}
	return b.next.Broadcast(ctx, event)
}

func newUsers(n int) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, n)
	for i := range ids {
		ids[i] = primitive.NewObjectID()
	}
	return ids
}

func questionEvent(actor primitive.ObjectID) models.FanoutEvent {
	questionID := primitive.NewObjectID()
	return models.FanoutEvent{
		ID:         primitive.NewObjectID(),
		Type:       models.NotificationTypeQuestion,
		ActorID:    actor,
		ActorName:  "Ada",
		QuestionID: &questionID,
		OccurredAt: time.Now(),
	}
}
