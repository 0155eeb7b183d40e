package goals

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orgmanage/orgmanage/internal/analytics"
	"github.com/orgmanage/orgmanage/internal/realtime"
	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/shared"
)

type memoryRepo struct {
	rows map[uuid.UUID]Goal
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[uuid.UUID]Goal{}}
}

func (m *memoryRepo) Create(_ context.Context, g Goal) (Goal, error) {
	g.CreatedAt = time.Now().UTC()
	g.UpdatedAt = g.CreatedAt
	m.rows[g.ID] = g
	return g, nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (Goal, error) {
	g, ok := m.rows[id]
	if !ok {
		return Goal{}, shared.ErrNotFound
	}
	return g, nil
}

func (m *memoryRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]Goal, error) {
	var out []Goal
	for _, g := range m.rows {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListAll(_ context.Context) ([]Goal, error) {
	var out []Goal
	for _, g := range m.rows {
		out = append(out, g)
	}
	return out, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) (Goal, error) {
	g, ok := m.rows[id]
	if !ok {
		return Goal{}, shared.ErrNotFound
	}
	g.Status = status
	g.UpdatedAt = time.Now().UTC()
	m.rows[id] = g
	return g, nil
}

func (m *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryRepo) ActivePastEnd(_ context.Context, asOf time.Time) ([]Goal, error) {
	var out []Goal
	for _, g := range m.rows {
		if g.Status == StatusActive && g.EndDate.Before(asOf) {
			out = append(out, g)
		}
	}
	return out, nil
}

type fixedProgress struct{}

func (f fixedProgress) ProgressFor(_ context.Context, win analytics.GoalWindow) (analytics.Progress, error) {
	return analytics.GoalProgress(win, nil), nil
}

type sumProgress struct{ current float64 }

func (s sumProgress) ProgressFor(_ context.Context, win analytics.GoalWindow) (analytics.Progress, error) {
	p := analytics.Progress{Current: s.current, Target: win.Target}
	return p, nil
}

type captureNotifier struct {
	userID uuid.UUID
	kind   string
	count  int
}

func (c *captureNotifier) NotifyUser(_ context.Context, userID uuid.UUID, kind, _, _ string, _ uuid.UUID) {
	c.userID = userID
	c.kind = kind
	c.count++
}

type capturePublisher struct {
	events []realtime.ChangeEvent
}

func (c *capturePublisher) Publish(_ context.Context, event realtime.ChangeEvent) error {
	c.events = append(c.events, event)
	return nil
}

func newTestService(progress ProgressSource) (*Service, *memoryRepo, *capturePublisher, *captureNotifier) {
	repo := newMemoryRepo()
	pub := &capturePublisher{}
	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, progress, pub, notifier), repo, pub, notifier
}

func validRequest() CreateRequest {
	return CreateRequest{
		Title:        "Q1 revenue",
		TargetAmount: 50000,
		Period:       PeriodQuarterly,
		StartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateOwnGoalAllowedForAnyRole(t *testing.T) {
	svc, _, pub, notifier := newTestService(fixedProgress{})
	actor := uuid.New()

	g, err := svc.Create(context.Background(), actor, roles.NewSet(roles.RoleUser), validRequest())
	require.NoError(t, err)
	require.Equal(t, actor, g.UserID)
	require.Equal(t, StatusActive, g.Status)
	require.Len(t, pub.events, 1)
	// No self-notification for your own goal.
	require.Zero(t, notifier.count)
}

func TestCreateForOtherRequiresManagerGrant(t *testing.T) {
	svc, _, _, notifier := newTestService(fixedProgress{})
	actor := uuid.New()
	target := uuid.New()

	req := validRequest()
	req.UserID = target.String()

	_, err := svc.Create(context.Background(), actor, roles.NewSet(roles.RoleUser), req)
	require.ErrorIs(t, err, ErrForbidden)

	g, err := svc.Create(context.Background(), actor, roles.NewSet(roles.RoleManager), req)
	require.NoError(t, err)
	require.Equal(t, target, g.UserID)
	require.Equal(t, actor, g.CreatedBy)
	require.Equal(t, 1, notifier.count)
	require.Equal(t, target, notifier.userID)
	require.Equal(t, "goal", notifier.kind)
}

func TestCreateRejectsUnknownPeriod(t *testing.T) {
	svc, _, _, _ := newTestService(fixedProgress{})

	req := validRequest()
	req.Period = "weekly"
	_, err := svc.Create(context.Background(), uuid.New(), roles.NewSet(roles.RoleUser), req)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestListScopesByRole(t *testing.T) {
	svc, _, _, _ := newTestService(fixedProgress{})
	mine := uuid.New()

	_, err := svc.Create(context.Background(), mine, roles.NewSet(roles.RoleUser), validRequest())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), uuid.New(), roles.NewSet(roles.RoleUser), validRequest())
	require.NoError(t, err)

	own, err := svc.List(context.Background(), mine, roles.NewSet(roles.RoleUser))
	require.NoError(t, err)
	require.Len(t, own, 1)

	all, err := svc.List(context.Background(), mine, roles.NewSet(roles.RoleManager))
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRefreshSettlesPastGoals(t *testing.T) {
	svc, repo, _, notifier := newTestService(sumProgress{current: 60000})
	owner := uuid.New()

	g, err := svc.Create(context.Background(), owner, roles.NewSet(roles.RoleUser), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Refresh(context.Background(), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))

	settled, err := repo.Get(context.Background(), g.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, settled.Status)
	require.Equal(t, "goal", notifier.kind)
	require.Equal(t, owner, notifier.userID)
}

func TestRefreshExpiresUnmetGoals(t *testing.T) {
	svc, repo, _, _ := newTestService(sumProgress{current: 100})
	owner := uuid.New()

	g, err := svc.Create(context.Background(), owner, roles.NewSet(roles.RoleUser), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Refresh(context.Background(), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))

	settled, err := repo.Get(context.Background(), g.ID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, settled.Status)
}

func TestDeleteRequiresOwnershipOrGrant(t *testing.T) {
	svc, _, _, _ := newTestService(fixedProgress{})
	owner := uuid.New()

	g, err := svc.Create(context.Background(), owner, roles.NewSet(roles.RoleUser), validRequest())
	require.NoError(t, err)

	err = svc.Delete(context.Background(), uuid.New(), roles.NewSet(roles.RoleUser), g.ID)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), owner, roles.NewSet(roles.RoleUser), g.ID))
}
