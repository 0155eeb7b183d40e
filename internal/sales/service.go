package sales

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

// CacheBumper invalidates derived aggregates after a write.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Notifier fans a notification out to everyone holding one of the target
// roles, excluding the actor.
type Notifier interface {
	NotifyRoles(ctx context.Context, targets []roles.Role, actor uuid.UUID, kind, title, message string, relatedID uuid.UUID)
}

// CreateRequest carries a new transaction submission.
type CreateRequest struct {
	TransactionID   string    `json:"transaction_id" validate:"required,max=64"`
	Date            time.Time `json:"date" validate:"required"`
	Region          string    `json:"region" validate:"required,max=120"`
	SaleAmount      float64   `json:"sale_amount" validate:"gte=0"`
	CustomerSegment string    `json:"customer_segment" validate:"required,max=120"`
	LeadSource      string    `json:"lead_source" validate:"required,max=120"`
	Status          string    `json:"status" validate:"required"`
}

// Service provides business logic for sales transactions.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	events   realtime.Publisher
	cache    CacheBumper
	notifier Notifier
}

func NewService(logger *slog.Logger, repo Repository, events realtime.Publisher, cache CacheBumper, notifier Notifier) *Service {
	return &Service{logger: logger, repo: repo, events: events, cache: cache, notifier: notifier}
}

// Create records a new transaction owned by actor. The record is immutable
// afterwards; there is no update path.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req CreateRequest) (Transaction, error) {
	if !ValidStatus(req.Status) {
		return Transaction{}, fmt.Errorf("%w: status %q", shared.ErrInvalidTransition, req.Status)
	}

	tx := Transaction{
		ID:              uuid.New(),
		TransactionID:   strings.TrimSpace(req.TransactionID),
		OwnerID:         actor,
		Date:            req.Date,
		Region:          strings.TrimSpace(req.Region),
		SaleAmount:      req.SaleAmount,
		CustomerSegment: strings.TrimSpace(req.CustomerSegment),
		LeadSource:      strings.TrimSpace(req.LeadSource),
		Status:          req.Status,
	}

	created, err := s.repo.Create(ctx, tx)
	if err != nil {
		return Transaction{}, err
	}

	s.publish(ctx, realtime.ActionInsert, created)
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump analytics cache", slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyRoles(ctx,
			[]roles.Role{roles.RoleManager, roles.RoleCEO}, actor,
			"transaction_created",
			"New transaction recorded",
			fmt.Sprintf("%s closed a %s transaction of %s in %s",
				created.TransactionID, created.Status,
				shared.FormatGHS(created.SaleAmount), created.Region),
			created.ID)
	}
	return created, nil
}

// Get loads one transaction, enforcing ownership for restricted viewers.
func (s *Service) Get(ctx context.Context, actor uuid.UUID, set roles.Set, id uuid.UUID) (Transaction, error) {
	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if !canViewAll(set) && tx.OwnerID != actor {
		return Transaction{}, shared.ErrNotFound
	}
	return tx, nil
}

// List returns transactions visible to the actor. Principals without a
// book-wide role only ever see their own records.
func (s *Service) List(ctx context.Context, actor uuid.UUID, set roles.Set, filter ListFilter) ([]Transaction, error) {
	if !canViewAll(set) {
		filter.OwnerID = &actor
	}
	return s.repo.List(ctx, filter)
}

// Count mirrors List's visibility scoping for pagination totals.
func (s *Service) Count(ctx context.Context, actor uuid.UUID, set roles.Set, filter ListFilter) (int, error) {
	if !canViewAll(set) {
		filter.OwnerID = &actor
	}
	return s.repo.Count(ctx, filter)
}

func canViewAll(set roles.Set) bool {
	return set.HasAny(roles.RoleManager, roles.RoleFinance, roles.RoleCEO)
}

func (s *Service) publish(ctx context.Context, action realtime.Action, tx Transaction) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(tx)
	if err != nil {
		s.logger.Warn("encode transaction event", slog.Any("error", err))
		return
	}
	event := realtime.ChangeEvent{
		Collection: realtime.CollectionTransactions,
		Action:     action,
		Record: realtime.Record{
			ID:        tx.ID,
			OwnerID:   tx.OwnerID,
			CreatedAt: tx.CreatedAt,
			UpdatedAt: tx.UpdatedAt,
			Data:      data,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish transaction event", slog.Any("error", err))
	}
}
