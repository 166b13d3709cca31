// Package realtime relays committed duel changes to connected clients.
//
// Use cases publish domain events to the Bus after commit. The Hub
// subscribes to the bus and fans each event out to the websocket
// subscribers watching that duel or named in its audience. Delivery is
// at-least-once per connection and unordered across duels; clients
// dedupe by row id.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

// Topic carries every duel event.
const Topic = "duel-events"

var ErrBusClosed = errors.New("realtime: bus closed")

// Bus is an in-process watermill pub/sub for domain events.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    *slog.Logger
	closed atomic.Bool
}

var _ ports.EventPublisher = (*Bus)(nil)

func NewBus(log *slog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermill.NewSlogLogger(log))
	return &Bus{pubsub: pubsub, log: log}
}

// Publish encodes and publishes events in order.
func (b *Bus) Publish(ctx context.Context, events ...domain.Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	msgs := make([]*message.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Type, err)
		}
		msg := message.NewMessage(ev.ID.String(), payload)
		msg.Metadata.Set("event_type", string(ev.Type))
		msg.Metadata.Set("duel_id", ev.DuelID.String())
		msg.SetContext(ctx)
		msgs = append(msgs, msg)
	}
	if err := b.pubsub.Publish(Topic, msgs...); err != nil {
		return fmt.Errorf("publish events: %w", err)
	}
	return nil
}

// Subscribe returns the raw message stream until ctx is done.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}
	return b.pubsub.Subscribe(ctx, Topic)
}

// Health reports whether the bus still accepts events.
func (b *Bus) Health(context.Context) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	return nil
}

func (b *Bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.pubsub.Close()
}

// Decode reads an event published by Bus.
func Decode(msg *message.Message) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return domain.Event{}, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return ev, nil
}
