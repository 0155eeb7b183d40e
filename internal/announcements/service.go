package announcements

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/realtime"
	"github.com/orgmanage/orgmanage/internal/shared"
)

// Notifier broadcasts a new announcement to the rest of the org.
type Notifier interface {
	NotifyAllExcept(ctx context.Context, actor uuid.UUID, kind, title, message string, relatedID uuid.UUID)
}

// CreateRequest carries a new announcement.
type CreateRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required,max=8000"`
	Priority string `json:"priority" validate:"required"`
}

// Service provides business logic for announcements.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	events   realtime.Publisher
	notifier Notifier
}

func NewService(logger *slog.Logger, repo Repository, events realtime.Publisher, notifier Notifier) *Service {
	return &Service{logger: logger, repo: repo, events: events, notifier: notifier}
}

// Create publishes an announcement and broadcasts it to every principal
// except the author. The broadcast is fire-and-forget: a dispatch failure
// never rolls the announcement back.
func (s *Service) Create(ctx context.Context, author uuid.UUID, req CreateRequest) (Announcement, error) {
	if !ValidPriority(req.Priority) {
		return Announcement{}, fmt.Errorf("%w: priority %q", shared.ErrInvalidTransition, req.Priority)
	}
	a := Announcement{
		ID:       uuid.New(),
		AuthorID: author,
		Title:    strings.TrimSpace(req.Title),
		Content:  strings.TrimSpace(req.Content),
		Priority: req.Priority,
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Announcement{}, err
	}

	s.publish(ctx, realtime.ActionInsert, created)
	if s.notifier != nil {
		s.notifier.NotifyAllExcept(ctx, author, "announcement", created.Title, created.Content, created.ID)
	}
	return created, nil
}

// List returns every announcement, newest first.
func (s *Service) List(ctx context.Context) ([]Announcement, error) {
	return s.repo.List(ctx)
}

// Delete removes an announcement.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, realtime.ActionDelete, Announcement{ID: id})
	return nil
}

func (s *Service) publish(ctx context.Context, action realtime.Action, a Announcement) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		s.logger.Warn("encode change event", slog.Any("error", err))
		return
	}
	event := realtime.ChangeEvent{
		Collection: realtime.CollectionAnnouncements,
		Action:     action,
		Record: realtime.Record{
			ID:        a.ID,
			OwnerID:   uuid.Nil,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
			Data:      data,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish change event",
			slog.String("collection", string(realtime.CollectionAnnouncements)), slog.Any("error", err))
	}
}
