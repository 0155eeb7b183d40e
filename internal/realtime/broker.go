package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publisher emits change events onto the transport.
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// Broker carries change events over Redis pub/sub, one channel per
// collection.
type Broker struct {
	client *redis.Client
	logger *slog.Logger
	buffer int
}

// NewBroker constructs a Broker. buffer bounds each subscription's event
// queue; events beyond it are dropped and the subscriber resynchronizes.
func NewBroker(client *redis.Client, logger *slog.Logger, buffer int) *Broker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Broker{client: client, logger: logger, buffer: buffer}
}

func channelFor(c Collection) string {
	return "rt." + string(c)
}

// Publish emits the event. Publishing is fire-and-forget relative to the
// triggering write: failures are logged, never propagated.
func (b *Broker) Publish(ctx context.Context, event ChangeEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, channelFor(event.Collection), payload).Err(); err != nil {
		if b.logger != nil {
			b.logger.Warn("publish change event",
				slog.String("collection", string(event.Collection)),
				slog.Any("error", err))
		}
		return err
	}
	return nil
}

// Subscription is a standing change feed for one collection. Events are
// drained by a single goroutine so handlers never run concurrently.
type Subscription struct {
	collection Collection
	owner      uuid.UUID
	pubsub     *redis.PubSub
	events     chan ChangeEvent
	lost       chan struct{}
	closeOnce  sync.Once
	closed     chan struct{}
}

// Subscribe opens a change feed for the collection. When owner is non-nil,
// only events whose record belongs to that principal are delivered.
// The caller must Close the subscription on teardown to release the
// transport; a leaked handler would keep mutating a torn-down view.
func (b *Broker) Subscribe(ctx context.Context, collection Collection, owner uuid.UUID) *Subscription {
	sub := &Subscription{
		collection: collection,
		owner:      owner,
		pubsub:     b.client.Subscribe(ctx, channelFor(collection)),
		events:     make(chan ChangeEvent, b.buffer),
		lost:       make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}
	go sub.pump(ctx, b.logger)
	return sub
}

// Events yields change events in delivery order.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

// Lost signals that events may have been missed (queue overflow or
// transport hiccup); the consumer must perform a full refetch.
func (s *Subscription) Lost() <-chan struct{} {
	return s.lost
}

// Close releases the transport subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.pubsub.Close()
	})
}

// pump drives the transport receive loop. It deliberately avoids
// pubsub.Channel(): that helper re-subscribes after a broken connection and
// resumes the stream without replaying anything published during the
// outage, which would leave consumers silently gapped. Receiving manually
// surfaces the transport error, so every disconnect becomes a loss signal
// and the consumer refetches before trusting the stream again.
func (s *Subscription) pump(ctx context.Context, logger *slog.Logger) {
	defer close(s.events)
	for {
		msg, err := s.pubsub.ReceiveMessage(ctx)
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.signalLost()
			}
			return
		}
		var event ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			if logger != nil {
				logger.Warn("drop malformed change event",
					slog.String("collection", string(s.collection)),
					slog.Any("error", err))
			}
			continue
		}
		if s.owner != uuid.Nil && event.Record.OwnerID != s.owner {
			continue
		}
		select {
		case s.events <- event:
		default:
			// Queue full: the consumer is behind, make it resync
			// rather than deliver a gapped stream.
			s.signalLost()
		}
	}
}

func (s *Subscription) signalLost() {
	select {
	case s.lost <- struct{}{}:
	default:
	}
}
