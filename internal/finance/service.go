package finance

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

const reviewModule = "expenses"

// Submission carries a new expense claim.
type Submission struct {
	Category    string    `json:"category" validate:"required,max=120"`
	Description string    `json:"description" validate:"required,max=2000"`
	Amount      float64   `json:"amount" validate:"gt=0"`
	ExpenseDate time.Time `json:"expense_date" validate:"required"`
	ReceiptURL  string    `json:"receipt_url" validate:"omitempty,url,max=500"`
}

// Service provides business logic for the expense workflow.
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

// Submit files a pending claim for the actor and alerts reviewers.
func (s *Service) Submit(ctx context.Context, actor uuid.UUID, req Submission) (Expense, error) {
	e := Expense{
		ID:          uuid.New(),
		UserID:      actor,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		ExpenseDate: req.ExpenseDate,
		ReceiptURL:  strings.TrimSpace(req.ReceiptURL),
		Status:      ExpensePending,
	}
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return Expense{}, err
	}

	s.recordReview(ctx, created.ID, actor, shared.ReviewSubmit, created.Category)
	s.publish(ctx, realtime.ActionInsert, created)
	if s.notifier != nil {
		s.notifier.NotifyRoles(ctx, []roles.Role{roles.RoleFinance, roles.RoleCEO}, actor,
			"approval_pending",
			"Expense submitted",
			fmt.Sprintf("%s claim of %s awaits review",
				created.Category, shared.FormatGHS(created.Amount)),
			created.ID)
	}
	return created, nil
}

// List returns claims: reviewers see all, everyone else their own.
func (s *Service) List(ctx context.Context, actor uuid.UUID, reviewer bool) ([]Expense, error) {
	if reviewer {
		return s.repo.List(ctx, nil)
	}
	return s.repo.List(ctx, &actor)
}

// Review settles a pending claim with approve or reject, stamps the
// reviewer, records the trail, and tells the claimant.
func (s *Service) Review(ctx context.Context, reviewer uuid.UUID, id uuid.UUID, approve bool, note string) (Expense, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if current.Status != ExpensePending {
		return Expense{}, fmt.Errorf("%w: expense already %s", shared.ErrInvalidTransition, current.Status)
	}

	status := ExpenseRejected
	action := shared.ReviewReject
	if approve {
		status = ExpenseApproved
		action = shared.ReviewApprove
	}
	settled, err := s.repo.Review(ctx, id, reviewer, status, time.Now().UTC())
	if err != nil {
		return Expense{}, err
	}

	s.recordReview(ctx, settled.ID, reviewer, action, note)
	s.publish(ctx, realtime.ActionUpdate, settled)
	if s.notifier != nil {
		s.notifier.NotifyUser(ctx, settled.UserID, "expense",
			fmt.Sprintf("Expense %s", status),
			fmt.Sprintf("Your %s claim of %s was %s",
				settled.Category, shared.FormatGHS(settled.Amount), status),
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
		s.logger.Warn("record expense review", slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, action realtime.Action, e Expense) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("encode expense event", slog.Any("error", err))
		return
	}
	event := realtime.ChangeEvent{
		Collection: realtime.CollectionExpenses,
		Action:     action,
		Record: realtime.Record{
			ID:        e.ID,
			OwnerID:   e.UserID,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
			Data:      data,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish expense event", slog.Any("error", err))
	}
}
