package it

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

// Repository persists assets and tickets.
type Repository interface {
	CreateAsset(ctx context.Context, a Asset) (Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (Asset, error)
	ListAssets(ctx context.Context) ([]Asset, error)
	UpdateAsset(ctx context.Context, a Asset) (Asset, error)
	DeleteAsset(ctx context.Context, id uuid.UUID) error

	CreateTicket(ctx context.Context, t Ticket) (Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (Ticket, error)
	ListTickets(ctx context.Context, owner *uuid.UUID) ([]Ticket, error)
	UpdateTicketStatus(ctx context.Context, id uuid.UUID, status string, assignedTo *uuid.UUID, resolvedAt *time.Time) (Ticket, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const assetColumns = `id, asset_name, asset_type, serial_number, assigned_to, purchase_date, warranty_expiry, status, created_at, updated_at`

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.AssetName, &a.AssetType, &a.SerialNumber, &a.AssignedTo,
		&a.PurchaseDate, &a.WarrantyExpiry, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PGRepository) CreateAsset(ctx context.Context, a Asset) (Asset, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO it_assets (id, asset_name, asset_type, serial_number, assigned_to, purchase_date, warranty_expiry, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+assetColumns,
		a.ID, a.AssetName, a.AssetType, a.SerialNumber, a.AssignedTo,
		a.PurchaseDate, a.WarrantyExpiry, a.Status)
	created, err := scanAsset(row)
	if err != nil {
		return Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetAsset(ctx context.Context, id uuid.UUID) (Asset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM it_assets WHERE id = $1`, id)
	a, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Asset{}, shared.ErrNotFound
	}
	if err != nil {
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func (r *PGRepository) ListAssets(ctx context.Context) ([]Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM it_assets ORDER BY asset_name`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepository) UpdateAsset(ctx context.Context, a Asset) (Asset, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE it_assets
		SET asset_name = $2, asset_type = $3, serial_number = $4, assigned_to = $5,
		    purchase_date = $6, warranty_expiry = $7, status = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+assetColumns,
		a.ID, a.AssetName, a.AssetType, a.SerialNumber, a.AssignedTo,
		a.PurchaseDate, a.WarrantyExpiry, a.Status)
	updated, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Asset{}, shared.ErrNotFound
	}
	if err != nil {
		return Asset{}, fmt.Errorf("update asset: %w", err)
	}
	return updated, nil
}

func (r *PGRepository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM it_assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const ticketColumns = `id, user_id, title, description, category, priority, status, assigned_to, resolved_at, created_at, updated_at`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Category,
		&t.Priority, &t.Status, &t.AssignedTo, &t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *PGRepository) CreateTicket(ctx context.Context, t Ticket) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO it_tickets (id, user_id, title, description, category, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+ticketColumns,
		t.ID, t.UserID, t.Title, t.Description, t.Category, t.Priority, t.Status)
	created, err := scanTicket(row)
	if err != nil {
		return Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetTicket(ctx context.Context, id uuid.UUID) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM it_tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, shared.ErrNotFound
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

func (r *PGRepository) ListTickets(ctx context.Context, owner *uuid.UUID) ([]Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM it_tickets`
	args := []any{}
	if owner != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *owner)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGRepository) UpdateTicketStatus(ctx context.Context, id uuid.UUID, status string, assignedTo *uuid.UUID, resolvedAt *time.Time) (Ticket, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE it_tickets
		SET status = $2, assigned_to = COALESCE($3, assigned_to), resolved_at = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+ticketColumns,
		id, status, assignedTo, resolvedAt)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, shared.ErrNotFound
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("update ticket: %w", err)
	}
	return t, nil
}
