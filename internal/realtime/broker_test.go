package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBroker(client, slog.New(slog.NewTextHandler(testWriter{t}, nil)), 16)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func waitEvent(t *testing.T, sub *Subscription) ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed before event arrived")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	return ChangeEvent{}
}

func TestBrokerDeliversPublishedEvent(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	sub := broker.Subscribe(ctx, CollectionGoals, uuid.Nil)
	defer sub.Close()
	// Give the pub/sub channel a moment to register.
	time.Sleep(50 * time.Millisecond)

	want := ChangeEvent{
		Collection: CollectionGoals,
		Action:     ActionInsert,
		Record:     Record{ID: uuid.New(), OwnerID: uuid.New()},
	}
	if err := broker.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := waitEvent(t, sub)
	if got.Record.ID != want.Record.ID {
		t.Fatalf("got record %s, want %s", got.Record.ID, want.Record.ID)
	}
	if got.Action != ActionInsert {
		t.Fatalf("got action %s, want %s", got.Action, ActionInsert)
	}
	if got.OccurredAt.IsZero() {
		t.Fatal("expected publish to stamp OccurredAt")
	}
}

func TestBrokerFiltersByOwner(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()
	owner := uuid.New()

	sub := broker.Subscribe(ctx, CollectionNotifications, owner)
	defer sub.Close()
	time.Sleep(50 * time.Millisecond)

	other := ChangeEvent{
		Collection: CollectionNotifications,
		Action:     ActionInsert,
		Record:     Record{ID: uuid.New(), OwnerID: uuid.New()},
	}
	mine := ChangeEvent{
		Collection: CollectionNotifications,
		Action:     ActionInsert,
		Record:     Record{ID: uuid.New(), OwnerID: owner},
	}
	if err := broker.Publish(ctx, other); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := broker.Publish(ctx, mine); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := waitEvent(t, sub)
	if got.Record.ID != mine.Record.ID {
		t.Fatalf("owner filter leaked record %s", got.Record.ID)
	}
}

func TestBrokerIsolatesCollections(t *testing.T) {
	broker := newTestBroker(t)
	ctx := context.Background()

	goals := broker.Subscribe(ctx, CollectionGoals, uuid.Nil)
	defer goals.Close()
	time.Sleep(50 * time.Millisecond)

	if err := broker.Publish(ctx, ChangeEvent{
		Collection: CollectionExpenses,
		Action:     ActionInsert,
		Record:     Record{ID: uuid.New()},
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case event := <-goals.Events():
		t.Fatalf("goals feed received foreign event %v", event)
	case <-time.After(200 * time.Millisecond):
	}
}
