package goals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgmanage/orgmanage/internal/shared"
)

// Repository persists goals.
type Repository interface {
	Create(ctx context.Context, g Goal) (Goal, error)
	Get(ctx context.Context, id uuid.UUID) (Goal, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Goal, error)
	ListAll(ctx context.Context) ([]Goal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Goal, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ActivePastEnd(ctx context.Context, asOf time.Time) ([]Goal, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const goalColumns = `id, user_id, created_by, title, target_amount, period, start_date, end_date, status, created_at, updated_at`

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.UserID, &g.CreatedBy, &g.Title, &g.TargetAmount,
		&g.Period, &g.StartDate, &g.EndDate, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (r *PGRepository) Create(ctx context.Context, g Goal) (Goal, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO goals (id, user_id, created_by, title, target_amount, period, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+goalColumns,
		g.ID, g.UserID, g.CreatedBy, g.Title, g.TargetAmount, g.Period,
		g.StartDate, g.EndDate, g.Status)
	created, err := scanGoal(row)
	if err != nil {
		return Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Goal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = $1`, id)
	g, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, shared.ErrNotFound
	}
	if err != nil {
		return Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *PGRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Goal, error) {
	return r.list(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PGRepository) ListAll(ctx context.Context) ([]Goal, error) {
	return r.list(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY created_at DESC`)
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Goal, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE goals SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+goalColumns, id, status)
	g, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, shared.ErrNotFound
	}
	if err != nil {
		return Goal{}, fmt.Errorf("update goal status: %w", err)
	}
	return g, nil
}

func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ActivePastEnd returns active goals whose end date is behind asOf, for the
// refresh job.
func (r *PGRepository) ActivePastEnd(ctx context.Context, asOf time.Time) ([]Goal, error) {
	return r.list(ctx, `SELECT `+goalColumns+` FROM goals WHERE status = $1 AND end_date < $2`,
		StatusActive, asOf)
}

func (r *PGRepository) list(ctx context.Context, query string, args ...any) ([]Goal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
