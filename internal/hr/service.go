package hr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/realtime"
	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/shared"
)

// Reviewer records settlement actions on the shared review trail.
type Reviewer interface {
	Record(ctx context.Context, log shared.ReviewLog) error
}

// Notifier delivers decision and submission notifications.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, kind, title, message string, relatedID uuid.UUID)
	NotifyRoles(ctx context.Context, targets []roles.Role, actor uuid.UUID, kind, title, message string, relatedID uuid.UUID)
}

const reviewModule = "leave_requests"

// EmployeeRequest carries roster create/update payloads.
type EmployeeRequest struct {
	ProfileID  string    `json:"profile_id" validate:"omitempty,uuid"`
	FullName   string    `json:"full_name" validate:"required,max=200"`
	Email      string    `json:"email" validate:"required,email"`
	Position   string    `json:"position" validate:"required,max=120"`
	Department string    `json:"department" validate:"required,max=120"`
	HireDate   time.Time `json:"hire_date" validate:"required"`
	Status     string    `json:"status" validate:"required"`
}

// LeaveSubmission carries a new leave request.
type LeaveSubmission struct {
	LeaveType string    `json:"leave_type" validate:"required,max=64"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	Reason    string    `json:"reason" validate:"max=2000"`
}

// Service provides business logic for the roster and leave workflow.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	events   realtime.Publisher
	reviews  Reviewer
	notifier Notifier
}

func NewService(logger *slog.Logger, repo Repository, events realtime.Publisher, reviews Reviewer, notifier Notifier) *Service {
	return &Service{logger: logger, repo: repo, events: events, reviews: reviews, notifier: notifier}
}

// CreateEmployee adds a roster entry.
func (s *Service) CreateEmployee(ctx context.Context, req EmployeeRequest) (Employee, error) {
	e, err := employeeFromRequest(uuid.New(), req)
	if err != nil {
		return Employee{}, err
	}
	created, err := s.repo.CreateEmployee(ctx, e)
	if err != nil {
		return Employee{}, err
	}
	s.publishEmployee(ctx, realtime.ActionInsert, created)
	return created, nil
}

// UpdateEmployee rewrites a roster entry.
func (s *Service) UpdateEmployee(ctx context.Context, id uuid.UUID, req EmployeeRequest) (Employee, error) {
	e, err := employeeFromRequest(id, req)
	if err != nil {
		return Employee{}, err
	}
	updated, err := s.repo.UpdateEmployee(ctx, e)
	if err != nil {
		return Employee{}, err
	}
	s.publishEmployee(ctx, realtime.ActionUpdate, updated)
	return updated, nil
}

// DeleteEmployee removes a roster entry.
func (s *Service) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.publishEmployee(ctx, realtime.ActionDelete, Employee{ID: id})
	return nil
}

// ListEmployees returns the whole roster.
func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.repo.ListEmployees(ctx)
}

func employeeFromRequest(id uuid.UUID, req EmployeeRequest) (Employee, error) {
	if !ValidEmployeeStatus(req.Status) {
		return Employee{}, fmt.Errorf("%w: employee status %q", shared.ErrInvalidTransition, req.Status)
	}
	e := Employee{
		ID:         id,
		FullName:   strings.TrimSpace(req.FullName),
		Email:      strings.TrimSpace(req.Email),
		Position:   strings.TrimSpace(req.Position),
		Department: strings.TrimSpace(req.Department),
		HireDate:   req.HireDate,
		Status:     req.Status,
	}
	if req.ProfileID != "" {
		pid, err := uuid.Parse(req.ProfileID)
		if err != nil {
			return Employee{}, fmt.Errorf("parse profile id: %w", err)
		}
		e.ProfileID = &pid
	}
	return e, nil
}

// SubmitLeave files a pending request for the actor and alerts reviewers.
func (s *Service) SubmitLeave(ctx context.Context, actor uuid.UUID, req LeaveSubmission) (LeaveRequest, error) {
	if req.EndDate.Before(req.StartDate) {
		return LeaveRequest{}, fmt.Errorf("%w: end date before start date", shared.ErrInvalidTransition)
	}
	lr := LeaveRequest{
		ID:        uuid.New(),
		UserID:    actor,
		LeaveType: strings.TrimSpace(req.LeaveType),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    strings.TrimSpace(req.Reason),
		Status:    LeavePending,
	}
	created, err := s.repo.CreateLeave(ctx, lr)
	if err != nil {
		return LeaveRequest{}, err
	}

	s.recordReview(ctx, created.ID, actor, shared.ReviewSubmit, created.LeaveType)
	s.publishLeave(ctx, realtime.ActionInsert, created)
	if s.notifier != nil {
		s.notifier.NotifyRoles(ctx, []roles.Role{roles.RoleHR, roles.RoleCEO}, actor,
			"approval_pending",
			"Leave request submitted",
			fmt.Sprintf("%s leave from %s to %s awaits review",
				created.LeaveType,
				created.StartDate.Format("2 Jan 2006"),
				created.EndDate.Format("2 Jan 2006")),
			created.ID)
	}
	return created, nil
}

// ListLeave returns requests: reviewers see all, everyone else their own.
func (s *Service) ListLeave(ctx context.Context, actor uuid.UUID, reviewer bool) ([]LeaveRequest, error) {
	if reviewer {
		return s.repo.ListLeave(ctx, nil)
	}
	return s.repo.ListLeave(ctx, &actor)
}

// ReviewLeave settles a pending request with approve or reject, stamps the
// reviewer, records the trail, and tells the requester. Reviewing an
// already settled request fails.
func (s *Service) ReviewLeave(ctx context.Context, reviewer uuid.UUID, id uuid.UUID, approve bool, note string) (LeaveRequest, error) {
	current, err := s.repo.GetLeave(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if current.Status != LeavePending {
		return LeaveRequest{}, fmt.Errorf("%w: request already %s", shared.ErrInvalidTransition, current.Status)
	}

	status := LeaveRejected
	action := shared.ReviewReject
	if approve {
		status = LeaveApproved
		action = shared.ReviewApprove
	}
	settled, err := s.repo.ReviewLeave(ctx, id, reviewer, status, time.Now().UTC())
	if err != nil {
		return LeaveRequest{}, err
	}

	s.recordReview(ctx, settled.ID, reviewer, action, note)
	s.publishLeave(ctx, realtime.ActionUpdate, settled)
	if s.notifier != nil {
		s.notifier.NotifyUser(ctx, settled.UserID, "leave_request",
			fmt.Sprintf("Leave request %s", status),
			fmt.Sprintf("Your %s leave from %s to %s was %s",
				settled.LeaveType,
				settled.StartDate.Format("2 Jan 2006"),
				settled.EndDate.Format("2 Jan 2006"),
				status),
			settled.ID)
	}
	return settled, nil
}

func (s *Service) recordReview(ctx context.Context, ref, actor uuid.UUID, action shared.ReviewAction, note string) {
	if s.reviews == nil {
		return
	}
	if err := s.reviews.Record(ctx, shared.ReviewLog{
		Module:  reviewModule,
		RefID:   ref,
		ActorID: actor,
		Action:  action,
		Note:    note,
	}); err != nil {
		s.logger.Warn("record leave review", slog.Any("error", err))
	}
}

func (s *Service) publishEmployee(ctx context.Context, action realtime.Action, e Employee) {
	s.publishEvent(ctx, realtime.CollectionEmployees, action, e.ID, uuid.Nil, e.CreatedAt, e.UpdatedAt, e)
}

func (s *Service) publishLeave(ctx context.Context, action realtime.Action, lr LeaveRequest) {
	s.publishEvent(ctx, realtime.CollectionLeaveRequests, action, lr.ID, lr.UserID, lr.CreatedAt, lr.UpdatedAt, lr)
}

func (s *Service) publishEvent(ctx context.Context, collection realtime.Collection, action realtime.Action, id, owner uuid.UUID, createdAt, updatedAt time.Time, payload any) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("encode change event", slog.Any("error", err))
		return
	}
	event := realtime.ChangeEvent{
		Collection: collection,
		Action:     action,
		Record: realtime.Record{
			ID:        id,
			OwnerID:   owner,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
			Data:      data,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish change event",
			slog.String("collection", string(collection)), slog.Any("error", err))
	}
}
