package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/orgmanage/orgmanage/internal/roles"
)

// TaskTypeDispatch is the queue task type for notification fan-out.
const TaskTypeDispatch = "notify:dispatch"

// NewDispatchTask builds the queue task for a payload.
func NewDispatchTask(payload Payload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDispatch, data), nil
}

// Enqueuer submits tasks to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error
}

// RecipientSource resolves role membership to user ids.
type RecipientSource interface {
	UsersWithAnyRole(ctx context.Context, targets ...roles.Role) ([]uuid.UUID, error)
}

// Directory lists every known principal, for org-wide broadcasts.
type Directory interface {
	AllUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Dispatcher fans notifications out through the background queue.
// Dispatching is fire-and-forget: a failed enqueue is logged and the
// triggering write proceeds.
type Dispatcher struct {
	logger     *slog.Logger
	queue      Enqueuer
	recipients RecipientSource
	directory  Directory
}

func NewDispatcher(logger *slog.Logger, queue Enqueuer, recipients RecipientSource, directory Directory) *Dispatcher {
	return &Dispatcher{logger: logger, queue: queue, recipients: recipients, directory: directory}
}

// NotifyUser targets a single recipient.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID uuid.UUID, kind, title, message string, relatedID uuid.UUID) {
	d.dispatch(ctx, []uuid.UUID{userID}, uuid.Nil, kind, title, message, relatedID)
}

// NotifyRoles targets everyone holding one of the given roles, excluding
// the actor so nobody is told about their own action.
func (d *Dispatcher) NotifyRoles(ctx context.Context, targets []roles.Role, actor uuid.UUID, kind, title, message string, relatedID uuid.UUID) {
	recipients, err := d.recipients.UsersWithAnyRole(ctx, targets...)
	if err != nil {
		d.logger.Warn("resolve notification recipients",
			slog.String("type", kind), slog.Any("error", err))
		return
	}
	d.dispatch(ctx, recipients, actor, kind, title, message, relatedID)
}

// NotifyAllExcept targets every known principal except the actor.
func (d *Dispatcher) NotifyAllExcept(ctx context.Context, actor uuid.UUID, kind, title, message string, relatedID uuid.UUID) {
	if d.directory == nil {
		return
	}
	recipients, err := d.directory.AllUserIDs(ctx)
	if err != nil {
		d.logger.Warn("resolve broadcast recipients",
			slog.String("type", kind), slog.Any("error", err))
		return
	}
	d.dispatch(ctx, recipients, actor, kind, title, message, relatedID)
}

func (d *Dispatcher) dispatch(ctx context.Context, recipients []uuid.UUID, actor uuid.UUID, kind, title, message string, relatedID uuid.UUID) {
	filtered := make([]uuid.UUID, 0, len(recipients))
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	for _, id := range recipients {
		if id == actor || id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, id)
	}
	if len(filtered) == 0 {
		return
	}

	payload := Payload{
		Recipients: filtered,
		Type:       kind,
		Title:      title,
		Message:    message,
	}
	if relatedID != uuid.Nil {
		payload.RelatedID = &relatedID
	}

	task, err := NewDispatchTask(payload)
	if err != nil {
		d.logger.Error("build notification task", slog.Any("error", err))
		return
	}
	if err := d.queue.Enqueue(ctx, task); err != nil {
		d.logger.Warn("enqueue notification",
			slog.String("type", kind),
			slog.Int("recipients", len(filtered)),
			slog.Any("error", err))
	}
}
