package finance

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
	rows map[uuid.UUID]Expense
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[uuid.UUID]Expense{}}
}

func (m *memoryRepo) Create(_ context.Context, e Expense) (Expense, error) {
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	m.rows[e.ID] = e
	return e, nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (Expense, error) {
	e, ok := m.rows[id]
	if !ok {
		return Expense{}, shared.ErrNotFound
	}
	return e, nil
}

func (m *memoryRepo) List(_ context.Context, owner *uuid.UUID) ([]Expense, error) {
	var out []Expense
	for _, e := range m.rows {
		if owner != nil && e.UserID != *owner {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryRepo) Review(_ context.Context, id, reviewer uuid.UUID, status string, at time.Time) (Expense, error) {
	e, ok := m.rows[id]
	if !ok {
		return Expense{}, shared.ErrNotFound
	}
	e.Status = status
	e.ReviewedBy = &reviewer
	e.ReviewedAt = &at
	e.UpdatedAt = time.Now().UTC()
	m.rows[id] = e
	return e, nil
}

type captureReviewer struct {
	logs []shared.ReviewLog
}

func (c *captureReviewer) Record(_ context.Context, log shared.ReviewLog) error {
	c.logs = append(c.logs, log)
	return nil
}

type captureNotifier struct {
	userKinds []string
	roleKinds []string
	lastUser  uuid.UUID
}

func (c *captureNotifier) NotifyUser(_ context.Context, userID uuid.UUID, kind, _, _ string, _ uuid.UUID) {
	c.userKinds = append(c.userKinds, kind)
	c.lastUser = userID
}

func (c *captureNotifier) NotifyRoles(_ context.Context, _ []roles.Role, _ uuid.UUID, kind, _, _ string, _ uuid.UUID) {
	c.roleKinds = append(c.roleKinds, kind)
}

type capturePublisher struct {
	events []realtime.ChangeEvent
}

func (c *capturePublisher) Publish(_ context.Context, event realtime.ChangeEvent) error {
	c.events = append(c.events, event)
	return nil
}

func newTestService() (*Service, *capturePublisher, *captureReviewer, *captureNotifier) {
	repo := newMemoryRepo()
	pub := &capturePublisher{}
	reviews := &captureReviewer{}
	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, pub, reviews, notifier), pub, reviews, notifier
}

func claim() Submission {
	return Submission{
		Category:    "Travel",
		Description: "Client visit to Kumasi",
		Amount:      850,
		ExpenseDate: time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestSubmitAlertsFinanceReviewers(t *testing.T) {
	svc, pub, reviews, notifier := newTestService()
	actor := uuid.New()

	e, err := svc.Submit(context.Background(), actor, claim())
	require.NoError(t, err)
	require.Equal(t, ExpensePending, e.Status)

	require.Equal(t, []string{"approval_pending"}, notifier.roleKinds)
	require.Len(t, reviews.logs, 1)
	require.Equal(t, shared.ReviewSubmit, reviews.logs[0].Action)
	require.Len(t, pub.events, 1)
	require.Equal(t, realtime.CollectionExpenses, pub.events[0].Collection)
}

func TestReviewRejectsAndNotifiesClaimant(t *testing.T) {
	svc, _, reviews, notifier := newTestService()
	claimant := uuid.New()
	reviewer := uuid.New()

	e, err := svc.Submit(context.Background(), claimant, claim())
	require.NoError(t, err)

	settled, err := svc.Review(context.Background(), reviewer, e.ID, false, "no receipt")
	require.NoError(t, err)
	require.Equal(t, ExpenseRejected, settled.Status)
	require.Equal(t, reviewer, *settled.ReviewedBy)

	require.Equal(t, shared.ReviewReject, reviews.logs[len(reviews.logs)-1].Action)
	require.Equal(t, []string{"expense"}, notifier.userKinds)
	require.Equal(t, claimant, notifier.lastUser)
}

func TestReviewSettledClaimFails(t *testing.T) {
	svc, _, _, _ := newTestService()

	e, err := svc.Submit(context.Background(), uuid.New(), claim())
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), uuid.New(), e.ID, true, "")
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), uuid.New(), e.ID, false, "")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestListScopes(t *testing.T) {
	svc, _, _, _ := newTestService()
	mine := uuid.New()

	_, err := svc.Submit(context.Background(), mine, claim())
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), uuid.New(), claim())
	require.NoError(t, err)

	own, err := svc.List(context.Background(), mine, false)
	require.NoError(t, err)
	require.Len(t, own, 1)

	all, err := svc.List(context.Background(), mine, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
