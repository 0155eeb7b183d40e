package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/orgmanage/orgmanage/internal/realtime"
)

// Service delivers queued payloads and serves the recipient inbox.
type Service struct {
	logger *slog.Logger
	repo   Repository
	events realtime.Publisher
}

func NewService(logger *slog.Logger, repo Repository, events realtime.Publisher) *Service {
	return &Service{logger: logger, repo: repo, events: events}
}

// Deliver inserts one row per recipient. A failing recipient is logged and
// skipped; the rest of the batch still lands.
func (s *Service) Deliver(ctx context.Context, payload Payload) {
	for _, recipient := range payload.Recipients {
		n := Notification{
			ID:        uuid.New(),
			UserID:    recipient,
			Type:      payload.Type,
			Title:     payload.Title,
			Message:   payload.Message,
			RelatedID: payload.RelatedID,
		}
		created, err := s.repo.Insert(ctx, n)
		if err != nil {
			s.logger.Warn("deliver notification",
				slog.String("recipient", recipient.String()),
				slog.String("type", payload.Type),
				slog.Any("error", err))
			continue
		}
		s.publish(ctx, realtime.ActionInsert, created)
	}
}

// HandleDispatchTask processes queued fan-out tasks. Delivery failures do
// not fail the task: the batch is best-effort and never retried.
func (s *Service) HandleDispatchTask(ctx context.Context, t *asynq.Task) error {
	var payload Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	s.Deliver(ctx, payload)
	return nil
}

// List returns the recipient's inbox, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, limit)
}

// UnreadCount returns the recipient's unread badge count.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead marks one of the recipient's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) (Notification, error) {
	n, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return Notification{}, err
	}
	s.publish(ctx, realtime.ActionUpdate, n)
	return n, nil
}

// Delete removes one of the recipient's notifications.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, realtime.ActionDelete, Notification{ID: id, UserID: userID})
	return nil
}

func (s *Service) publish(ctx context.Context, action realtime.Action, n Notification) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Warn("encode notification event", slog.Any("error", err))
		return
	}
	event := realtime.ChangeEvent{
		Collection: realtime.CollectionNotifications,
		Action:     action,
		Record: realtime.Record{
			ID:        n.ID,
			OwnerID:   n.UserID,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.UpdatedAt,
			Data:      data,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish notification event", slog.Any("error", err))
	}
}
