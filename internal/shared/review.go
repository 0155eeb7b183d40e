package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewAction enumerates review trail actions.
type ReviewAction string

const (
	// ReviewSubmit marks the initial submission of a request.
	ReviewSubmit ReviewAction = "SUBMIT"
	// ReviewApprove marks an approval.
	ReviewApprove ReviewAction = "APPROVE"
	// ReviewReject marks a rejection.
	ReviewReject ReviewAction = "REJECT"
	// ReviewResolve marks a ticket resolution.
	ReviewResolve ReviewAction = "RESOLVE"
)

// ReviewLog represents a single review trail record.
type ReviewLog struct {
	ID      int64
	Module  string
	RefID   uuid.UUID
	ActorID uuid.UUID
	Action  ReviewAction
	Note    string
	At      time.Time
}

// ReviewRecorder persists the review history for request-style records
// (leave requests, expenses, tickets).
type ReviewRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewReviewRecorder constructs ReviewRecorder.
func NewReviewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *ReviewRecorder {
	return &ReviewRecorder{pool: pool, logger: logger}
}

// Record writes a review entry to the database.
func (r *ReviewRecorder) Record(ctx context.Context, log ReviewLog) error {
	if r == nil {
		return errors.New("review recorder not initialised")
	}
	if log.Module == "" {
		return errors.New("review module required")
	}
	if log.ActorID == uuid.Nil {
		return errors.New("review actor required")
	}
	if log.RefID == uuid.Nil {
		return errors.New("review ref id required")
	}
	if log.Action == "" {
		return errors.New("review action required")
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO reviews (module, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6, '0001-01-01 00:00:00+00'::timestamptz), NOW()))`, log.Module, log.RefID, log.ActorID, string(log.Action), log.Note, log.At)
	if err != nil {
		r.logger.Error("record review", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns the review trail for module/ref in submission order.
func (r *ReviewRecorder) List(ctx context.Context, module string, ref uuid.UUID) ([]ReviewLog, error) {
	if r == nil {
		return nil, errors.New("review recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, module, ref_id, actor_id, action, note, at
FROM reviews WHERE module=$1 AND ref_id=$2 ORDER BY at ASC`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []ReviewLog
	for rows.Next() {
		var l ReviewLog
		var action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.ActorID, &action, &l.Note, &l.At); err != nil {
			return nil, err
		}
		l.Action = ReviewAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
