package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestOutboxPublisherDefersFanout(t *testing.T) {
	users := newUsers(3)
	svc, store := newTestService(users)
	outbox := &memoryOutbox{}

	require.NoError(t, NewOutboxPublisher(outbox).Publish(context.Background(), questionEvent(users[0])))
	assert.Zero(t, store.count())
	assert.Len(t, outbox.snapshot(), 1)

	worker := NewWorker(outbox, svc, time.Second, time.Minute, zap.NewNop())
	delivered, err := worker.DrainOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 2, store.count())
	assert.Empty(t, outbox.snapshot())
}

func TestDrainSkipsUsersCreatedAfterEvent(t *testing.T) {
	users := newUsers(2)
	directory := &fakeDirectory{ids: users}
	store := newMemoryStore()
	svc := NewService(directory, store, zap.NewNop())
	outbox := &memoryOutbox{}

	event := questionEvent(users[0])
	require.NoError(t, NewOutboxPublisher(outbox).Publish(context.Background(), event))

	late := primitive.NewObjectID()
	directory.join(late, event.OccurredAt.Add(time.Second))

	worker := NewWorker(outbox, svc, time.Second, time.Minute, zap.NewNop())
	delivered, err := worker.DrainOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, delivered)
	assert.Len(t, store.forUser(users[1]), 1)
	assert.Empty(t, store.forUser(late), "a user who joined after the event must not receive it")
}

func TestWorkerReleasesFailedEvent(t *testing.T) {
	users := newUsers(3)
	svc, store := newTestService(users)
	outbox := &memoryOutbox{}
	flaky := &flakyBroadcaster{next: svc, failures: 1}
	require.NoError(t, outbox.Enqueue(context.Background(), questionEvent(users[0])))

	worker := NewWorker(outbox, flaky, time.Second, time.Minute, zap.NewNop())

	delivered, err := worker.DrainOnce(context.Background())
	assert.Error(t, err)
	assert.Zero(t, delivered)
	pending := outbox.snapshot()
	require.Len(t, pending, 1)
	assert.Equal(t, "pending", pending[0].Status)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "store unavailable", pending[0].LastError)

	delivered, err = worker.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 2, store.count())
	assert.Empty(t, outbox.snapshot())
}

func TestWorkerReclaimsExpiredLease(t *testing.T) {
	users := newUsers(2)
	svc, store := newTestService(users)
	outbox := &memoryOutbox{}
	require.NoError(t, outbox.Enqueue(context.Background(), questionEvent(users[0])))

	// A worker that crashed mid-delivery leaves the event leased.
	_, err := outbox.Claim(context.Background(), time.Minute)
	require.NoError(t, err)

	worker := NewWorker(outbox, svc, time.Second, time.Minute, zap.NewNop())
	delivered, err := worker.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered, "a live lease must not be stolen")

	worker.lease = time.Nanosecond
	time.Sleep(time.Millisecond)
	delivered, err = worker.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, store.count())
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	users := newUsers(2)
	svc, store := newTestService(users)
	outbox := &memoryOutbox{}
	require.NoError(t, outbox.Enqueue(context.Background(), questionEvent(users[0])))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	worker := NewWorker(outbox, svc, 10*time.Millisecond, time.Minute, zap.NewNop())
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestDirectPublisherFansOutInline(t *testing.T) {
	users := newUsers(4)
	svc, store := newTestService(users)

	require.NoError(t, NewDirectPublisher(svc).Publish(context.Background(), questionEvent(users[0])))
	assert.Equal(t, 3, store.count())
}
