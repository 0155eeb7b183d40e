package it

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

// Reviewer records ticket transitions on the shared review trail.
type Reviewer interface {
	Record(ctx context.Context, log shared.ReviewLog) error
}

// Notifier delivers ticket lifecycle notifications.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, kind, title, message string, relatedID uuid.UUID)
	NotifyRoles(ctx context.Context, targets []roles.Role, actor uuid.UUID, kind, title, message string, relatedID uuid.UUID)
}

const reviewModule = "it_tickets"

// AssetRequest carries asset create/update payloads.
type AssetRequest struct {
	AssetName      string     `json:"asset_name" validate:"required,max=200"`
	AssetType      string     `json:"asset_type" validate:"required,max=120"`
	SerialNumber   string     `json:"serial_number" validate:"required,max=120"`
	AssignedTo     string     `json:"assigned_to" validate:"omitempty,uuid"`
	PurchaseDate   *time.Time `json:"purchase_date"`
	WarrantyExpiry *time.Time `json:"warranty_expiry"`
	Status         string     `json:"status" validate:"required"`
}

// TicketRequest carries a new support ticket.
type TicketRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=4000"`
	Category    string `json:"category" validate:"required,max=120"`
	Priority    string `json:"priority" validate:"required"`
}

// Service provides business logic for assets and tickets.
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

// CreateAsset adds an asset record.
func (s *Service) CreateAsset(ctx context.Context, req AssetRequest) (Asset, error) {
	a, err := assetFromRequest(uuid.New(), req)
	if err != nil {
		return Asset{}, err
	}
	created, err := s.repo.CreateAsset(ctx, a)
	if err != nil {
		return Asset{}, err
	}
	s.publishAsset(ctx, realtime.ActionInsert, created)
	return created, nil
}

// UpdateAsset rewrites an asset record.
func (s *Service) UpdateAsset(ctx context.Context, id uuid.UUID, req AssetRequest) (Asset, error) {
	a, err := assetFromRequest(id, req)
	if err != nil {
		return Asset{}, err
	}
	updated, err := s.repo.UpdateAsset(ctx, a)
	if err != nil {
		return Asset{}, err
	}
	s.publishAsset(ctx, realtime.ActionUpdate, updated)
	return updated, nil
}

// DeleteAsset removes an asset record.
func (s *Service) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteAsset(ctx, id); err != nil {
		return err
	}
	s.publishAsset(ctx, realtime.ActionDelete, Asset{ID: id})
	return nil
}

// ListAssets returns the asset register.
func (s *Service) ListAssets(ctx context.Context) ([]Asset, error) {
	return s.repo.ListAssets(ctx)
}

func assetFromRequest(id uuid.UUID, req AssetRequest) (Asset, error) {
	if !ValidAssetStatus(req.Status) {
		return Asset{}, fmt.Errorf("%w: asset status %q", shared.ErrInvalidTransition, req.Status)
	}
	a := Asset{
		ID:             id,
		AssetName:      strings.TrimSpace(req.AssetName),
		AssetType:      strings.TrimSpace(req.AssetType),
		SerialNumber:   strings.TrimSpace(req.SerialNumber),
		PurchaseDate:   req.PurchaseDate,
		WarrantyExpiry: req.WarrantyExpiry,
		Status:         req.Status,
	}
	if req.AssignedTo != "" {
		uid, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return Asset{}, fmt.Errorf("parse assignee: %w", err)
		}
		a.AssignedTo = &uid
	}
	return a, nil
}

// SubmitTicket files an open ticket for the actor and alerts the IT desk.
func (s *Service) SubmitTicket(ctx context.Context, actor uuid.UUID, req TicketRequest) (Ticket, error) {
	if !ValidPriority(req.Priority) {
		return Ticket{}, fmt.Errorf("%w: priority %q", shared.ErrInvalidTransition, req.Priority)
	}
	t := Ticket{
		ID:          uuid.New(),
		UserID:      actor,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Priority:    req.Priority,
		Status:      TicketOpen,
	}
	created, err := s.repo.CreateTicket(ctx, t)
	if err != nil {
		return Ticket{}, err
	}

	s.recordReview(ctx, created.ID, actor, shared.ReviewSubmit, created.Category)
	s.publishTicket(ctx, realtime.ActionInsert, created)
	if s.notifier != nil {
		s.notifier.NotifyRoles(ctx, []roles.Role{roles.RoleIT, roles.RoleCEO}, actor,
			"it_ticket",
			"New support ticket",
			fmt.Sprintf("[%s] %s", created.Priority, created.Title),
			created.ID)
	}
	return created, nil
}

// ListTickets returns tickets: the desk sees all, everyone else their own.
func (s *Service) ListTickets(ctx context.Context, actor uuid.UUID, desk bool) ([]Ticket, error) {
	if desk {
		return s.repo.ListTickets(ctx, nil)
	}
	return s.repo.ListTickets(ctx, &actor)
}

// AdvanceTicket moves a ticket one step forward: open to in_progress, or
// in_progress to resolved (stamping resolved_at). Skipping or reversing a
// step fails.
func (s *Service) AdvanceTicket(ctx context.Context, actor uuid.UUID, id uuid.UUID, status string, assignee *uuid.UUID) (Ticket, error) {
	current, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if !CanTransition(current.Status, status) {
		return Ticket{}, fmt.Errorf("%w: %s to %s", shared.ErrInvalidTransition, current.Status, status)
	}

	var resolvedAt *time.Time
	if status == TicketResolved {
		now := time.Now().UTC()
		resolvedAt = &now
	}
	if assignee == nil && status == TicketInProgress {
		assignee = &actor
	}
	updated, err := s.repo.UpdateTicketStatus(ctx, id, status, assignee, resolvedAt)
	if err != nil {
		return Ticket{}, err
	}

	action := shared.ReviewApprove
	if status == TicketResolved {
		action = shared.ReviewResolve
	}
	s.recordReview(ctx, updated.ID, actor, action, status)
	s.publishTicket(ctx, realtime.ActionUpdate, updated)
	if s.notifier != nil {
		s.notifier.NotifyUser(ctx, updated.UserID, "it_ticket",
			fmt.Sprintf("Ticket %s", strings.ReplaceAll(status, "_", " ")),
			fmt.Sprintf("%q is now %s", updated.Title, strings.ReplaceAll(status, "_", " ")),
			updated.ID)
	}
	return updated, nil
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
		s.logger.Warn("record ticket review", slog.Any("error", err))
	}
}

func (s *Service) publishAsset(ctx context.Context, action realtime.Action, a Asset) {
	s.publishEvent(ctx, realtime.CollectionITAssets, action, a.ID, uuid.Nil, a.CreatedAt, a.UpdatedAt, a)
}

func (s *Service) publishTicket(ctx context.Context, action realtime.Action, t Ticket) {
	s.publishEvent(ctx, realtime.CollectionITTickets, action, t.ID, t.UserID, t.CreatedAt, t.UpdatedAt, t)
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
