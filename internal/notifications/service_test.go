package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orgmanage/orgmanage/internal/realtime"
	"github.com/orgmanage/orgmanage/internal/shared"
)

type memoryRepo struct {
	rows    map[uuid.UUID]Notification
	failFor map[uuid.UUID]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[uuid.UUID]Notification{}, failFor: map[uuid.UUID]bool{}}
}

func (m *memoryRepo) Insert(_ context.Context, n Notification) (Notification, error) {
	if m.failFor[n.UserID] {
		return Notification{}, errors.New("insert failed")
	}
	n.CreatedAt = time.Now().UTC()
	n.UpdatedAt = n.CreatedAt
	m.rows[n.ID] = n
	return n, nil
}

func (m *memoryRepo) ListForUser(_ context.Context, userID uuid.UUID, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memoryRepo) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range m.rows {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) MarkRead(_ context.Context, userID, id uuid.UUID) (Notification, error) {
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return Notification{}, shared.ErrNotFound
	}
	n.Read = true
	n.UpdatedAt = time.Now().UTC()
	m.rows[id] = n
	return n, nil
}

func (m *memoryRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return shared.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type capturePublisher struct {
	events []realtime.ChangeEvent
}

func (c *capturePublisher) Publish(_ context.Context, event realtime.ChangeEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestDeliverContinuesPastFailingRecipient(t *testing.T) {
	repo := newMemoryRepo()
	pub := &capturePublisher{}
	svc := NewService(discardLogger(), repo, pub)

	good := uuid.New()
	bad := uuid.New()
	repo.failFor[bad] = true

	svc.Deliver(context.Background(), Payload{
		Recipients: []uuid.UUID{bad, good},
		Type:       "announcement",
		Title:      "t",
		Message:    "m",
	})

	require.Len(t, repo.rows, 1)
	require.Len(t, pub.events, 1)
	require.Equal(t, good, pub.events[0].Record.OwnerID)
	require.Equal(t, realtime.CollectionNotifications, pub.events[0].Collection)
}

func TestMarkReadIsOwnerScoped(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(discardLogger(), repo, nil)

	owner := uuid.New()
	svc.Deliver(context.Background(), Payload{
		Recipients: []uuid.UUID{owner}, Type: "x", Title: "t", Message: "m",
	})
	var id uuid.UUID
	for k := range repo.rows {
		id = k
	}

	_, err := svc.MarkRead(context.Background(), uuid.New(), id)
	require.ErrorIs(t, err, shared.ErrNotFound)

	n, err := svc.MarkRead(context.Background(), owner, id)
	require.NoError(t, err)
	require.True(t, n.Read)

	count, err := svc.UnreadCount(context.Background(), owner)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDeleteRemovesAndPublishes(t *testing.T) {
	repo := newMemoryRepo()
	pub := &capturePublisher{}
	svc := NewService(discardLogger(), repo, pub)

	owner := uuid.New()
	svc.Deliver(context.Background(), Payload{
		Recipients: []uuid.UUID{owner}, Type: "x", Title: "t", Message: "m",
	})
	var id uuid.UUID
	for k := range repo.rows {
		id = k
	}
	pub.events = nil

	require.NoError(t, svc.Delete(context.Background(), owner, id))
	require.Empty(t, repo.rows)
	require.Len(t, pub.events, 1)
	require.Equal(t, realtime.ActionDelete, pub.events[0].Action)
}
