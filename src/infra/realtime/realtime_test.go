package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarduel/src/core/domain"
	"scholarduel/src/infra/logger"
	"scholarduel/src/infra/metrics"
)

func TestBusRoundTrip(t *testing.T) {
	bus := NewBus(logger.Discard())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	duelID := uuid.New()
	ev := domain.NewEvent(domain.EventRoundInserted, duelID, time.Now().UTC())
	ev.Round = &domain.Round{ID: uuid.New(), DuelID: duelID, RoundNumber: 2, TotalScore: 17}
	require.NoError(t, bus.Publish(ctx, ev))

	select {
	case msg := <-msgs:
		got, err := Decode(msg)
		msg.Ack()
		require.NoError(t, err)
		assert.Equal(t, ev.ID, got.ID)
		assert.Equal(t, ev.ID.String(), msg.UUID)
		assert.Equal(t, domain.EventRoundInserted, got.Type)
		require.NotNil(t, got.Round)
		assert.Equal(t, 17, got.Round.TotalScore)
		assert.Equal(t, string(domain.EventRoundInserted), msg.Metadata.Get("event_type"))
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestBusClosed(t *testing.T) {
	bus := NewBus(logger.Discard())
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), domain.Event{}), ErrBusClosed)
	assert.ErrorIs(t, bus.Health(context.Background()), ErrBusClosed)
}

func TestHubDeliverFilters(t *testing.T) {
	hub := NewHub(4, metrics.NewNoop(), logger.Discard())
	duelID := uuid.New()

	watcher := hub.Register(uuid.New(), duelID)
	audience := hub.Register(uuid.New())
	bystander := hub.Register(uuid.New())

	ev := domain.NewEvent(domain.EventDuelUpdated, duelID, time.Now())
	ev.Audience = []uuid.UUID{audience.UserID}
	hub.Deliver(ev)

	assert.Len(t, watcher.Events(), 1)
	assert.Len(t, audience.Events(), 1)
	assert.Len(t, bystander.Events(), 0)

	watcher.Unwatch(duelID)
	hub.Deliver(domain.NewEvent(domain.EventDuelUpdated, duelID, time.Now()))
	assert.Len(t, watcher.Events(), 1)

	bystander.Watch(duelID)
	hub.Deliver(domain.NewEvent(domain.EventDuelUpdated, duelID, time.Now()))
	assert.Len(t, bystander.Events(), 1)
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(1, metrics.NewNoop(), logger.Discard())
	duelID := uuid.New()
	s := hub.Register(uuid.New(), duelID)

	hub.Deliver(domain.NewEvent(domain.EventDuelUpdated, duelID, time.Now()))
	hub.Deliver(domain.NewEvent(domain.EventDuelUpdated, duelID, time.Now()))

	assert.Equal(t, 0, hub.Len())
	<-s.Events()
	_, open := <-s.Events()
	assert.False(t, open)

	assert.NotPanics(t, func() { hub.Unregister(s) })
}

func TestHubRun(t *testing.T) {
	bus := NewBus(logger.Discard())
	defer bus.Close()
	hub := NewHub(16, metrics.NewNoop(), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx, bus) }()

	duelID := uuid.New()
	s := hub.Register(uuid.New(), duelID)

	// the hub subscribes asynchronously; the relay is at-least-once, so
	// republishing until the first delivery is fine.
	ev := domain.NewEvent(domain.EventDuelUpdated, duelID, time.Now())
	require.Eventually(t, func() bool {
		require.NoError(t, bus.Publish(ctx, ev))
		select {
		case got := <-s.Events():
			return got.ID == ev.ID
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, hub.Len())
}
