package goals

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/orgmanage/orgmanage/internal/analytics"
	"github.com/orgmanage/orgmanage/internal/policy"
	"github.com/orgmanage/orgmanage/internal/realtime"
	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/shared"
)

// ErrForbidden signals an actor acting outside their role grants.
var ErrForbidden = shared.ErrForbidden

// ProgressSource computes a goal's standing from transactions.
type ProgressSource interface {
	ProgressFor(ctx context.Context, win analytics.GoalWindow) (analytics.Progress, error)
}

// Notifier targets a single recipient.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, kind, title, message string, relatedID uuid.UUID)
}

// CreateRequest carries a new goal submission.
type CreateRequest struct {
	UserID       string    `json:"user_id" validate:"omitempty,uuid"`
	Title        string    `json:"title" validate:"required,max=200"`
	TargetAmount float64   `json:"target_amount" validate:"gt=0"`
	Period       string    `json:"period" validate:"required"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required"`
}

// GoalWithProgress pairs a goal with its computed standing.
type GoalWithProgress struct {
	Goal     Goal               `json:"goal"`
	Progress analytics.Progress `json:"progress"`
}

// Service provides business logic for goals.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	progress ProgressSource
	events   realtime.Publisher
	notifier Notifier
}

func NewService(logger *slog.Logger, repo Repository, progress ProgressSource, events realtime.Publisher, notifier Notifier) *Service {
	return &Service{logger: logger, repo: repo, progress: progress, events: events, notifier: notifier}
}

// Create records a goal. Targeting another principal requires a
// manager or ceo grant; anyone may set their own goal.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, set roles.Set, req CreateRequest) (Goal, error) {
	target := actor
	if req.UserID != "" {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			return Goal{}, fmt.Errorf("parse target user: %w", err)
		}
		target = parsed
	}
	if !policy.CanCreateGoalFor(set, target == actor) {
		return Goal{}, ErrForbidden
	}
	if !ValidPeriod(req.Period) {
		return Goal{}, fmt.Errorf("%w: period %q", shared.ErrInvalidTransition, req.Period)
	}
	if req.EndDate.Before(req.StartDate) {
		return Goal{}, fmt.Errorf("%w: end date before start date", shared.ErrInvalidTransition)
	}

	g := Goal{
		ID:           uuid.New(),
		UserID:       target,
		CreatedBy:    actor,
		Title:        strings.TrimSpace(req.Title),
		TargetAmount: req.TargetAmount,
		Period:       req.Period,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Status:       StatusActive,
	}
	created, err := s.repo.Create(ctx, g)
	if err != nil {
		return Goal{}, err
	}

	s.publish(ctx, realtime.ActionInsert, created)
	if s.notifier != nil && target != actor {
		s.notifier.NotifyUser(ctx, target, "goal",
			"New goal assigned",
			fmt.Sprintf("%s: target %s by %s", created.Title,
				shared.FormatGHS(created.TargetAmount),
				created.EndDate.Format("2 Jan 2006")),
			created.ID)
	}
	return created, nil
}

// List returns the goals visible to the actor with computed progress.
// Managers and the ceo see every goal, everyone else their own.
func (s *Service) List(ctx context.Context, actor uuid.UUID, set roles.Set) ([]GoalWithProgress, error) {
	var (
		items []Goal
		err   error
	)
	if set.HasAny(roles.RoleManager, roles.RoleCEO) {
		items, err = s.repo.ListAll(ctx)
	} else {
		items, err = s.repo.ListForUser(ctx, actor)
	}
	if err != nil {
		return nil, err
	}

	out := make([]GoalWithProgress, 0, len(items))
	for _, g := range items {
		p, err := s.progressOf(ctx, g)
		if err != nil {
			s.logger.Warn("goal progress", slog.String("goal", g.ID.String()), slog.Any("error", err))
		}
		out = append(out, GoalWithProgress{Goal: g, Progress: p})
	}
	return out, nil
}

// Get loads one goal with progress, enforcing visibility.
func (s *Service) Get(ctx context.Context, actor uuid.UUID, set roles.Set, id uuid.UUID) (GoalWithProgress, error) {
	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return GoalWithProgress{}, err
	}
	if g.UserID != actor && !set.HasAny(roles.RoleManager, roles.RoleCEO) {
		return GoalWithProgress{}, shared.ErrNotFound
	}
	p, err := s.progressOf(ctx, g)
	if err != nil {
		return GoalWithProgress{}, err
	}
	return GoalWithProgress{Goal: g, Progress: p}, nil
}

// Delete removes a goal. Only its creator, its owner, or a manager/ceo may.
func (s *Service) Delete(ctx context.Context, actor uuid.UUID, set roles.Set, id uuid.UUID) error {
	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if g.UserID != actor && g.CreatedBy != actor && !set.HasAny(roles.RoleManager, roles.RoleCEO) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, realtime.ActionDelete, g)
	return nil
}

// Refresh settles active goals whose window has closed: met targets become
// completed, the rest expire. Run from the worker cron.
func (s *Service) Refresh(ctx context.Context, asOf time.Time) error {
	stale, err := s.repo.ActivePastEnd(ctx, asOf)
	if err != nil {
		return err
	}
	for _, g := range stale {
		p, err := s.progressOf(ctx, g)
		if err != nil {
			s.logger.Warn("goal refresh progress", slog.String("goal", g.ID.String()), slog.Any("error", err))
			continue
		}
		status := StatusExpired
		if p.Current >= g.TargetAmount {
			status = StatusCompleted
		}
		updated, err := s.repo.UpdateStatus(ctx, g.ID, status)
		if err != nil {
			s.logger.Warn("goal refresh update", slog.String("goal", g.ID.String()), slog.Any("error", err))
			continue
		}
		s.publish(ctx, realtime.ActionUpdate, updated)
		if s.notifier != nil && status == StatusCompleted {
			s.notifier.NotifyUser(ctx, updated.UserID, "goal",
				"Goal completed",
				fmt.Sprintf("%s reached its %s target", updated.Title,
					shared.FormatGHS(updated.TargetAmount)),
				updated.ID)
		}
	}
	return nil
}

// TaskTypeRefresh is the queue task type for the goal settlement cron.
const TaskTypeRefresh = "goals:refresh"

// NewRefreshTask builds the cron task.
func NewRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskTypeRefresh, nil)
}

// HandleRefreshTask processes the settlement cron.
func (s *Service) HandleRefreshTask(ctx context.Context, _ *asynq.Task) error {
	return s.Refresh(ctx, time.Now().UTC())
}

func (s *Service) progressOf(ctx context.Context, g Goal) (analytics.Progress, error) {
	if s.progress == nil {
		return analytics.Progress{Target: g.TargetAmount, Remaining: g.TargetAmount}, nil
	}
	return s.progress.ProgressFor(ctx, analytics.GoalWindow{
		OwnerID: g.UserID,
		Target:  g.TargetAmount,
		Start:   g.StartDate,
		End:     g.EndDate,
	})
}

func (s *Service) publish(ctx context.Context, action realtime.Action, g Goal) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(g)
	if err != nil {
		s.logger.Warn("encode goal event", slog.Any("error", err))
		return
	}
	event := realtime.ChangeEvent{
		Collection: realtime.CollectionGoals,
		Action:     action,
		Record: realtime.Record{
			ID:        g.ID,
			OwnerID:   g.UserID,
			CreatedAt: g.CreatedAt,
			UpdatedAt: g.UpdatedAt,
			Data:      data,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish goal event", slog.Any("error", err))
	}
}
