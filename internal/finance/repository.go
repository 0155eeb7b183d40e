package finance

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

// Repository persists expenses.
type Repository interface {
	Create(ctx context.Context, e Expense) (Expense, error)
	Get(ctx context.Context, id uuid.UUID) (Expense, error)
	List(ctx context.Context, owner *uuid.UUID) ([]Expense, error)
	Review(ctx context.Context, id, reviewer uuid.UUID, status string, at time.Time) (Expense, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const expenseColumns = `id, user_id, category, description, amount, expense_date, receipt_url, status, reviewed_by, reviewed_at, created_at, updated_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.UserID, &e.Category, &e.Description, &e.Amount,
		&e.ExpenseDate, &e.ReceiptURL, &e.Status, &e.ReviewedBy, &e.ReviewedAt,
		&e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *PGRepository) Create(ctx context.Context, e Expense) (Expense, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (id, user_id, category, description, amount, expense_date, receipt_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+expenseColumns,
		e.ID, e.UserID, e.Category, e.Description, e.Amount, e.ExpenseDate, e.ReceiptURL, e.Status)
	created, err := scanExpense(row)
	if err != nil {
		return Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Expense, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, shared.ErrNotFound
	}
	if err != nil {
		return Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *PGRepository) List(ctx context.Context, owner *uuid.UUID) ([]Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses`
	args := []any{}
	if owner != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *owner)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Review stamps a decision. Concurrent reviewers race last-write-wins; the
// service rejects reviews of already settled claims it can observe.
func (r *PGRepository) Review(ctx context.Context, id, reviewer uuid.UUID, status string, at time.Time) (Expense, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE expenses
		SET status = $3, reviewed_by = $2, reviewed_at = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+expenseColumns,
		id, reviewer, status, at)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, shared.ErrNotFound
	}
	if err != nil {
		return Expense{}, fmt.Errorf("review expense: %w", err)
	}
	return e, nil
}
