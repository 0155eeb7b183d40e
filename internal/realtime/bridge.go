package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fetcher loads the full current state of a collection, used to
// (re)synchronize a cache after connect or signal loss.
type Fetcher interface {
	FetchAll(ctx context.Context, collection Collection) ([]Record, error)
}

// Bridge maintains one reconciled Store per subscribed collection. Each
// collection runs a single consumer goroutine draining its subscription
// queue, so cache mutations never interleave.
type Bridge struct {
	broker  *Broker
	fetcher Fetcher
	logger  *slog.Logger

	mu     sync.RWMutex
	stores map[Collection]*Store

	retry time.Duration
}

// NewBridge constructs a Bridge over the given collections.
func NewBridge(broker *Broker, fetcher Fetcher, logger *slog.Logger, collections []Collection) *Bridge {
	stores := make(map[Collection]*Store, len(collections))
	for _, c := range collections {
		stores[c] = NewStore()
	}
	return &Bridge{
		broker:  broker,
		fetcher: fetcher,
		logger:  logger,
		stores:  stores,
		retry:   2 * time.Second,
	}
}

// Store returns the reconciled cache for a collection, nil when the bridge
// does not track it.
func (b *Bridge) Store(collection Collection) *Store {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stores[collection]
}

// Run subscribes every tracked collection and blocks until ctx is
// cancelled. Each consumer resynchronizes with a full fetch before it
// trusts the event stream, and again whenever the stream reports loss.
func (b *Bridge) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	b.mu.RLock()
	for collection, store := range b.stores {
		wg.Add(1)
		go func(collection Collection, store *Store) {
			defer wg.Done()
			b.consume(ctx, collection, store)
		}(collection, store)
	}
	b.mu.RUnlock()
	wg.Wait()
	return ctx.Err()
}

func (b *Bridge) consume(ctx context.Context, collection Collection, store *Store) {
	for {
		if ctx.Err() != nil {
			return
		}

		sub := b.broker.Subscribe(ctx, collection, uuid.Nil)
		b.resync(ctx, collection, store)

		if !b.drain(ctx, sub, store) {
			sub.Close()
			return
		}
		// Transport lost: release the subscription and start over with a
		// fresh one plus a full refetch.
		sub.Close()
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.retry):
		}
	}
}

// drain processes events sequentially until cancellation (false) or signal
// loss (true).
func (b *Bridge) drain(ctx context.Context, sub *Subscription, store *Store) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-sub.Lost():
			return true
		case event, ok := <-sub.Events():
			if !ok {
				return true
			}
			store.Apply(event)
		}
	}
}

func (b *Bridge) resync(ctx context.Context, collection Collection, store *Store) {
	if b.fetcher == nil {
		return
	}
	records, err := b.fetcher.FetchAll(ctx, collection)
	if err != nil {
		if b.logger != nil {
			b.logger.Warn("bridge resync",
				slog.String("collection", string(collection)),
				slog.Any("error", err))
		}
		return
	}
	store.Replace(records)
}
