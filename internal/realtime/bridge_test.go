package realtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type scriptedFetcher struct {
	mu      sync.Mutex
	records []Record
	calls   int
}

func (f *scriptedFetcher) FetchAll(_ context.Context, _ Collection) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]Record, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *scriptedFetcher) setRecords(records []Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

func (f *scriptedFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBridgeRefetchesAfterTransportBlip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	fetcher := &scriptedFetcher{}
	bridge := NewBridge(NewBroker(client, logger, 16), fetcher, logger, []Collection{CollectionGoals})
	bridge.retry = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = bridge.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("bridge did not stop")
		}
	}()

	waitFor(t, func() bool { return fetcher.fetchCount() >= 1 }, "initial sync")

	// A row lands while the transport is down. Pub/sub never replays it, so
	// only a post-reconnect refetch can recover it.
	missed := Record{ID: uuid.New(), CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	fetcher.setRecords([]Record{missed})
	mr.Close()
	if err := mr.Restart(); err != nil {
		t.Fatalf("restart redis: %v", err)
	}

	store := bridge.Store(CollectionGoals)
	waitFor(t, func() bool {
		for _, rec := range store.Snapshot() {
			if rec.ID == missed.ID {
				return true
			}
		}
		return false
	}, "record recovered after reconnect")

	if fetcher.fetchCount() < 2 {
		t.Fatalf("expected a refetch after the blip, got %d fetches", fetcher.fetchCount())
	}
}

func TestSubscriptionSignalsLossOnBrokenTransport(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	broker := NewBroker(client, slog.New(slog.NewTextHandler(testWriter{t}, nil)), 16)
	sub := broker.Subscribe(context.Background(), CollectionGoals, uuid.Nil)
	defer sub.Close()
	time.Sleep(50 * time.Millisecond)

	mr.Close()
	if err := mr.Restart(); err != nil {
		t.Fatalf("restart redis: %v", err)
	}

	select {
	case <-sub.Lost():
	case <-time.After(2 * time.Second):
		t.Fatal("expected loss signal after the transport dropped")
	}
}
