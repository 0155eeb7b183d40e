package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgmanage/orgmanage/internal/shared"
)

var (
	// ErrDuplicate signals a transaction reference collision.
	ErrDuplicate = errors.New("transaction reference already exists")
)

// Repository provides PostgreSQL backed persistence for transactions.
type Repository interface {
	Create(ctx context.Context, tx Transaction) (Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]Transaction, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	ListSince(ctx context.Context, since time.Time, owner *uuid.UUID) ([]Transaction, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const transactionColumns = `id, transaction_id, owner_id, date, region, sale_amount, customer_segment, lead_source, status, created_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var tx Transaction
	err := row.Scan(&tx.ID, &tx.TransactionID, &tx.OwnerID, &tx.Date, &tx.Region,
		&tx.SaleAmount, &tx.CustomerSegment, &tx.LeadSource, &tx.Status,
		&tx.CreatedAt, &tx.UpdatedAt)
	return tx, err
}

func (r *PGRepository) Create(ctx context.Context, tx Transaction) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, transaction_id, owner_id, date, region, sale_amount, customer_segment, lead_source, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+transactionColumns,
		tx.ID, tx.TransactionID, tx.OwnerID, tx.Date, tx.Region,
		tx.SaleAmount, tx.CustomerSegment, tx.LeadSource, tx.Status)
	created, err := scanTransaction(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Transaction{}, ErrDuplicate
		}
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, shared.ErrNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// filterClause renders the shared WHERE fragment for List and Count.
func filterClause(filter ListFilter) (string, []any) {
	clause := " WHERE 1=1"
	args := []any{}
	idx := 1
	if filter.OwnerID != nil {
		clause += fmt.Sprintf(" AND owner_id = $%d", idx)
		args = append(args, *filter.OwnerID)
		idx++
	}
	if filter.Region != "" {
		clause += fmt.Sprintf(" AND region = $%d", idx)
		args = append(args, filter.Region)
		idx++
	}
	if filter.Status != "" {
		clause += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filter.Status)
		idx++
	}
	if !filter.From.IsZero() {
		clause += fmt.Sprintf(" AND date >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		clause += fmt.Sprintf(" AND date <= $%d", idx)
		args = append(args, filter.To)
	}
	return clause, args
}

func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	clause, args := filterClause(filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + clause
	idx := len(args) + 1
	query += " ORDER BY date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, filter.Limit)
		idx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *PGRepository) Count(ctx context.Context, filter ListFilter) (int, error) {
	clause, args := filterClause(filter)
	var total int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM transactions`+clause, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return total, nil
}

// ListSince loads transactions dated on or after since, optionally
// narrowed to one owner. Feeds the aggregation endpoints.
func (r *PGRepository) ListSince(ctx context.Context, since time.Time, owner *uuid.UUID) ([]Transaction, error) {
	filter := ListFilter{From: since, OwnerID: owner}
	return r.List(ctx, filter)
}
