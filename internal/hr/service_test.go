package hr

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
	employees map[uuid.UUID]Employee
	leave     map[uuid.UUID]LeaveRequest
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		employees: map[uuid.UUID]Employee{},
		leave:     map[uuid.UUID]LeaveRequest{},
	}
}

func (m *memoryRepo) CreateEmployee(_ context.Context, e Employee) (Employee, error) {
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	m.employees[e.ID] = e
	return e, nil
}

func (m *memoryRepo) GetEmployee(_ context.Context, id uuid.UUID) (Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return Employee{}, shared.ErrNotFound
	}
	return e, nil
}

func (m *memoryRepo) ListEmployees(_ context.Context) ([]Employee, error) {
	var out []Employee
	for _, e := range m.employees {
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryRepo) UpdateEmployee(_ context.Context, e Employee) (Employee, error) {
	if _, ok := m.employees[e.ID]; !ok {
		return Employee{}, shared.ErrNotFound
	}
	e.UpdatedAt = time.Now().UTC()
	m.employees[e.ID] = e
	return e, nil
}

func (m *memoryRepo) DeleteEmployee(_ context.Context, id uuid.UUID) error {
	if _, ok := m.employees[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.employees, id)
	return nil
}

func (m *memoryRepo) CreateLeave(_ context.Context, lr LeaveRequest) (LeaveRequest, error) {
	lr.CreatedAt = time.Now().UTC()
	lr.UpdatedAt = lr.CreatedAt
	m.leave[lr.ID] = lr
	return lr, nil
}

func (m *memoryRepo) GetLeave(_ context.Context, id uuid.UUID) (LeaveRequest, error) {
	lr, ok := m.leave[id]
	if !ok {
		return LeaveRequest{}, shared.ErrNotFound
	}
	return lr, nil
}

func (m *memoryRepo) ListLeave(_ context.Context, owner *uuid.UUID) ([]LeaveRequest, error) {
	var out []LeaveRequest
	for _, lr := range m.leave {
		if owner != nil && lr.UserID != *owner {
			continue
		}
		out = append(out, lr)
	}
	return out, nil
}

func (m *memoryRepo) ReviewLeave(_ context.Context, id, reviewer uuid.UUID, status string, at time.Time) (LeaveRequest, error) {
	lr, ok := m.leave[id]
	if !ok {
		return LeaveRequest{}, shared.ErrNotFound
	}
	lr.Status = status
	lr.ReviewedBy = &reviewer
	lr.ReviewedAt = &at
	lr.UpdatedAt = time.Now().UTC()
	m.leave[id] = lr
	return lr, nil
}

type captureReviewer struct {
	logs []shared.ReviewLog
}

func (c *captureReviewer) Record(_ context.Context, log shared.ReviewLog) error {
	c.logs = append(c.logs, log)
	return nil
}

type captureNotifier struct {
	userCalls []string
	roleCalls []string
	lastUser  uuid.UUID
}

func (c *captureNotifier) NotifyUser(_ context.Context, userID uuid.UUID, kind, _, _ string, _ uuid.UUID) {
	c.userCalls = append(c.userCalls, kind)
	c.lastUser = userID
}

func (c *captureNotifier) NotifyRoles(_ context.Context, _ []roles.Role, _ uuid.UUID, kind, _, _ string, _ uuid.UUID) {
	c.roleCalls = append(c.roleCalls, kind)
}

type capturePublisher struct {
	events []realtime.ChangeEvent
}

func (c *capturePublisher) Publish(_ context.Context, event realtime.ChangeEvent) error {
	c.events = append(c.events, event)
	return nil
}

func newTestService() (*Service, *memoryRepo, *capturePublisher, *captureReviewer, *captureNotifier) {
	repo := newMemoryRepo()
	pub := &capturePublisher{}
	reviews := &captureReviewer{}
	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, pub, reviews, notifier), repo, pub, reviews, notifier
}

func submission() LeaveSubmission {
	return LeaveSubmission{
		LeaveType: "annual",
		StartDate: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC),
		Reason:    "family trip",
	}
}

func TestSubmitLeaveAlertsReviewers(t *testing.T) {
	svc, _, pub, reviews, notifier := newTestService()
	actor := uuid.New()

	lr, err := svc.SubmitLeave(context.Background(), actor, submission())
	require.NoError(t, err)
	require.Equal(t, LeavePending, lr.Status)

	require.Len(t, reviews.logs, 1)
	require.Equal(t, shared.ReviewSubmit, reviews.logs[0].Action)
	require.Equal(t, []string{"approval_pending"}, notifier.roleCalls)
	require.Len(t, pub.events, 1)
	require.Equal(t, realtime.CollectionLeaveRequests, pub.events[0].Collection)
	require.Equal(t, actor, pub.events[0].Record.OwnerID)
}

func TestSubmitLeaveRejectsInvertedRange(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	req := submission()
	req.EndDate = req.StartDate.AddDate(0, 0, -1)
	_, err := svc.SubmitLeave(context.Background(), uuid.New(), req)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestReviewLeaveApprovesAndNotifiesRequester(t *testing.T) {
	svc, _, _, reviews, notifier := newTestService()
	requester := uuid.New()
	reviewer := uuid.New()

	lr, err := svc.SubmitLeave(context.Background(), requester, submission())
	require.NoError(t, err)

	settled, err := svc.ReviewLeave(context.Background(), reviewer, lr.ID, true, "enjoy")
	require.NoError(t, err)
	require.Equal(t, LeaveApproved, settled.Status)
	require.NotNil(t, settled.ReviewedBy)
	require.Equal(t, reviewer, *settled.ReviewedBy)
	require.NotNil(t, settled.ReviewedAt)

	require.Equal(t, shared.ReviewApprove, reviews.logs[len(reviews.logs)-1].Action)
	require.Equal(t, []string{"leave_request"}, notifier.userCalls)
	require.Equal(t, requester, notifier.lastUser)
}

func TestReviewLeaveRejectsSettledRequest(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	requester := uuid.New()

	lr, err := svc.SubmitLeave(context.Background(), requester, submission())
	require.NoError(t, err)

	_, err = svc.ReviewLeave(context.Background(), uuid.New(), lr.ID, false, "")
	require.NoError(t, err)

	_, err = svc.ReviewLeave(context.Background(), uuid.New(), lr.ID, true, "")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestListLeaveScopes(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	mine := uuid.New()

	_, err := svc.SubmitLeave(context.Background(), mine, submission())
	require.NoError(t, err)
	_, err = svc.SubmitLeave(context.Background(), uuid.New(), submission())
	require.NoError(t, err)

	own, err := svc.ListLeave(context.Background(), mine, false)
	require.NoError(t, err)
	require.Len(t, own, 1)

	all, err := svc.ListLeave(context.Background(), mine, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestEmployeeLifecyclePublishesEvents(t *testing.T) {
	svc, _, pub, _, _ := newTestService()

	e, err := svc.CreateEmployee(context.Background(), EmployeeRequest{
		FullName:   "Akosua Mensah",
		Email:      "akosua@orgmanage.test",
		Position:   "Accountant",
		Department: "Finance",
		HireDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:     EmployeeActive,
	})
	require.NoError(t, err)

	_, err = svc.UpdateEmployee(context.Background(), e.ID, EmployeeRequest{
		FullName:   "Akosua Mensah",
		Email:      "akosua@orgmanage.test",
		Position:   "Senior Accountant",
		Department: "Finance",
		HireDate:   e.HireDate,
		Status:     EmployeeOnLeave,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEmployee(context.Background(), e.ID))

	require.Len(t, pub.events, 3)
	require.Equal(t, realtime.ActionInsert, pub.events[0].Action)
	require.Equal(t, realtime.ActionUpdate, pub.events[1].Action)
	require.Equal(t, realtime.ActionDelete, pub.events[2].Action)
	for _, ev := range pub.events {
		require.Equal(t, realtime.CollectionEmployees, ev.Collection)
	}
}

func TestCreateEmployeeRejectsUnknownStatus(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.CreateEmployee(context.Background(), EmployeeRequest{
		FullName: "X", Email: "x@y.z", Position: "p", Department: "d",
		HireDate: time.Now(), Status: "retired",
	})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}
