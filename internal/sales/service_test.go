package sales

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orgmanage/orgmanage/internal/realtime"
	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/shared"
)

type memoryRepo struct {
	byID  map[uuid.UUID]Transaction
	byRef map[string]uuid.UUID
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: map[uuid.UUID]Transaction{}, byRef: map[string]uuid.UUID{}}
}

func (m *memoryRepo) Create(_ context.Context, tx Transaction) (Transaction, error) {
	if _, exists := m.byRef[tx.TransactionID]; exists {
		return Transaction{}, ErrDuplicate
	}
	tx.CreatedAt = time.Now().UTC()
	tx.UpdatedAt = tx.CreatedAt
	m.byID[tx.ID] = tx
	m.byRef[tx.TransactionID] = tx.ID
	return tx, nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (Transaction, error) {
	tx, ok := m.byID[id]
	if !ok {
		return Transaction{}, shared.ErrNotFound
	}
	return tx, nil
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Transaction, error) {
	var out []Transaction
	for _, tx := range m.byID {
		if filter.OwnerID != nil && tx.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Region != "" && tx.Region != filter.Region {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (m *memoryRepo) Count(ctx context.Context, filter ListFilter) (int, error) {
	out, err := m.List(ctx, filter)
	return len(out), err
}

func (m *memoryRepo) ListSince(_ context.Context, since time.Time, owner *uuid.UUID) ([]Transaction, error) {
	return m.List(context.Background(), ListFilter{From: since, OwnerID: owner})
}

type capturePublisher struct {
	events []realtime.ChangeEvent
}

func (c *capturePublisher) Publish(_ context.Context, event realtime.ChangeEvent) error {
	c.events = append(c.events, event)
	return nil
}

type captureBumper struct{ bumps int }

func (c *captureBumper) Bump(_ context.Context) error {
	c.bumps++
	return nil
}

type captureNotifier struct {
	targets []roles.Role
	actor   uuid.UUID
	kind    string
	message string
}

func (c *captureNotifier) NotifyRoles(_ context.Context, targets []roles.Role, actor uuid.UUID, kind, _, message string, _ uuid.UUID) {
	c.targets = targets
	c.actor = actor
	c.kind = kind
	c.message = message
}

func newTestService() (*Service, *memoryRepo, *capturePublisher, *captureBumper, *captureNotifier) {
	repo := newMemoryRepo()
	pub := &capturePublisher{}
	bumper := &captureBumper{}
	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, pub, bumper, notifier), repo, pub, bumper, notifier
}

func validRequest() CreateRequest {
	return CreateRequest{
		TransactionID:   "TXN-1001",
		Date:            time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Region:          "Greater Accra",
		SaleAmount:      20000,
		CustomerSegment: "Enterprise",
		LeadSource:      "Referral",
		Status:          StatusClosedWon,
	}
}

func TestCreatePublishesAndNotifies(t *testing.T) {
	svc, _, pub, bumper, notifier := newTestService()
	actor := uuid.New()

	tx, err := svc.Create(context.Background(), actor, validRequest())
	require.NoError(t, err)
	require.Equal(t, actor, tx.OwnerID)

	require.Len(t, pub.events, 1)
	require.Equal(t, realtime.CollectionTransactions, pub.events[0].Collection)
	require.Equal(t, realtime.ActionInsert, pub.events[0].Action)
	require.Equal(t, tx.ID, pub.events[0].Record.ID)

	require.Equal(t, 1, bumper.bumps)
	require.Equal(t, []roles.Role{roles.RoleManager, roles.RoleCEO}, notifier.targets)
	require.Equal(t, actor, notifier.actor)
	require.Equal(t, "transaction_created", notifier.kind)
	require.Contains(t, notifier.message, "GH₵20,000.00")
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc, _, pub, _, _ := newTestService()

	req := validRequest()
	req.Status = "Negotiating"
	_, err := svc.Create(context.Background(), uuid.New(), req)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.Empty(t, pub.events)
}

func TestCreateDuplicateReference(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	actor := uuid.New()

	_, err := svc.Create(context.Background(), actor, validRequest())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), actor, validRequest())
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestListScopesToOwnerWithoutBookRole(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	mine := uuid.New()
	theirs := uuid.New()

	_, err := svc.Create(context.Background(), mine, validRequest())
	require.NoError(t, err)
	other := validRequest()
	other.TransactionID = "TXN-1002"
	_, err = svc.Create(context.Background(), theirs, other)
	require.NoError(t, err)

	got, err := svc.List(context.Background(), mine, roles.NewSet(roles.RoleUser), ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, mine, got[0].OwnerID)

	all, err := svc.List(context.Background(), mine, roles.NewSet(roles.RoleManager), ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	visible, err := svc.Count(context.Background(), mine, roles.NewSet(roles.RoleUser), ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, visible)

	total, err := svc.Count(context.Background(), mine, roles.NewSet(roles.RoleManager), ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestGetHidesForeignRecordFromRestrictedViewer(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	owner := uuid.New()

	tx, err := svc.Create(context.Background(), owner, validRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), roles.NewSet(roles.RoleUser), tx.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	got, err := svc.Get(context.Background(), uuid.New(), roles.NewSet(roles.RoleCEO), tx.ID)
	require.NoError(t, err)
	require.Equal(t, tx.ID, got.ID)
}
