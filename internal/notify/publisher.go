package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/model"
)

// Event types.
const (
	EventEnter          = "enter"
	EventExit           = "exit"
	EventObjectiveReset = "objective_reset"
)

// Event is the JSON payload published for a side effect.
type Event struct {
	Type   string         `json:"type"`
	Entity model.EntityID `json:"entity"`
	Group  string         `json:"group,omitempty"`
	Floor  int32          `json:"floor,omitempty"`
	Region string         `json:"region,omitempty"`
	At     time.Time      `json:"at"`
}

// Transport sends one encoded event.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisTransport publishes on Redis pub/sub.
type RedisTransport struct {
	Client *redis.Client
}

func (t RedisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.Client.Publish(ctx, channel, payload).Err()
}

// DefaultBuffer is the publisher queue capacity.
const DefaultBuffer = 256

// Publisher is a transition sink that publishes events asynchronously.
// Hooks never block: when the queue is full the event is dropped.
type Publisher struct {
	transport Transport
	channel   string
	events    chan Event
	now       func() time.Time

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewPublisher creates a Publisher. Call Run to start delivery.
func NewPublisher(transport Transport, channel string, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Publisher{
		transport: transport,
		channel:   channel,
		events:    make(chan Event, buffer),
		now:       time.Now,
	}
}

func (p *Publisher) OnEnter(entity model.EntityID, b zone.Binding) error {
	return p.enqueue(Event{Type: EventEnter, Entity: entity, Group: b.GroupID, Floor: b.Floor, Region: b.RegionID})
}

func (p *Publisher) OnExit(entity model.EntityID, b zone.Binding) error {
	return p.enqueue(Event{Type: EventExit, Entity: entity, Group: b.GroupID, Floor: b.Floor, Region: b.RegionID})
}

func (p *Publisher) OnObjectiveReset(entity model.EntityID) error {
	return p.enqueue(Event{Type: EventObjectiveReset, Entity: entity})
}

func (p *Publisher) enqueue(e Event) error {
	e.At = p.now().UTC()
	select {
	case p.events <- e:
		return nil
	default:
		p.dropped.Add(1)
		return fmt.Errorf("event queue full, %s event dropped", e.Type)
	}
}

// Dropped returns the number of events dropped on a full queue.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Failed returns the number of events the transport rejected.
func (p *Publisher) Failed() uint64 { return p.failed.Load() }

// Run delivers queued events until ctx is canceled (blocks).
func (p *Publisher) Run(ctx context.Context) error {
	slog.Info("event publisher started", "channel", p.channel, "buffer", cap(p.events))
	for {
		select {
		case <-ctx.Done():
			slog.Info("event publisher stopping", "pending", len(p.events))
			return ctx.Err()
		case e := <-p.events:
			p.send(ctx, e)
		}
	}
}

func (p *Publisher) send(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.failed.Add(1)
		slog.Error("encode zone event", "type", e.Type, "err", err)
		return
	}
	if err := p.transport.Publish(ctx, p.channel, payload); err != nil {
		p.failed.Add(1)
		slog.Warn("publish zone event", "type", e.Type, "entity", e.Entity, "err", err)
	}
}
