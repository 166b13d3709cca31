package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

// Subscriber is one connected client.
type Subscriber struct {
	UserID uuid.UUID

	send      chan domain.Event
	closeOnce sync.Once

	mu    sync.Mutex
	duels map[uuid.UUID]struct{}
}

// Events yields the subscriber's events. It is closed when the subscriber
// is unregistered or dropped for falling behind.
func (s *Subscriber) Events() <-chan domain.Event { return s.send }

// Watch adds duelID to the subscriber's duels.
func (s *Subscriber) Watch(duelID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duels[duelID] = struct{}{}
}

// Unwatch removes duelID from the subscriber's duels.
func (s *Subscriber) Unwatch(duelID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.duels, duelID)
}

func (s *Subscriber) wants(ev domain.Event) bool {
	for _, u := range ev.Audience {
		if u == s.UserID {
			return true
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.duels[ev.DuelID]
	return ok
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.send) })
}

// Hub fans events out to subscribers.
type Hub struct {
	log     *slog.Logger
	metrics ports.Metrics
	buffer  int

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

func NewHub(buffer int, metrics ports.Metrics, log *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		log:     log,
		metrics: metrics,
		buffer:  buffer,
		subs:    make(map[*Subscriber]struct{}),
	}
}

// Register adds a subscriber watching duelIDs.
func (h *Hub) Register(userID uuid.UUID, duelIDs ...uuid.UUID) *Subscriber {
	s := &Subscriber{
		UserID: userID,
		send:   make(chan domain.Event, h.buffer),
		duels:  make(map[uuid.UUID]struct{}, len(duelIDs)),
	}
	for _, id := range duelIDs {
		s.duels[id] = struct{}{}
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	h.metrics.RealtimeConnections(1)
	return s
}

// Unregister removes s and closes its channel. Safe to call more than once.
func (h *Hub) Unregister(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	h.mu.Unlock()

	if ok {
		s.close()
		h.metrics.RealtimeConnections(-1)
	}
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Deliver hands ev to every interested subscriber without blocking.
// Subscribers whose buffer is full are dropped.
func (h *Hub) Deliver(ev domain.Event) {
	var slow []*Subscriber

	h.mu.RLock()
	for s := range h.subs {
		if !s.wants(ev) {
			continue
		}
		select {
		case s.send <- ev:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.log.Warn("dropping slow realtime subscriber", "user_id", s.UserID, "duel_id", ev.DuelID)
		h.Unregister(s)
	}
}

// Run delivers bus events until ctx is done.
func (h *Hub) Run(ctx context.Context, bus *Bus) error {
	msgs, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	h.log.Info("realtime hub started", "topic", Topic)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case msg, ok := <-msgs:
			if !ok {
				h.closeAll()
				return nil
			}
			ev, err := Decode(msg)
			msg.Ack()
			if err != nil {
				h.log.Error("discarding undecodable event", "error", err)
				continue
			}
			h.Deliver(ev)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscriber]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.close()
		h.metrics.RealtimeConnections(-1)
	}
}
