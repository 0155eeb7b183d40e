package announcements

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgmanage/orgmanage/internal/shared"
)

// Repository persists announcements.
type Repository interface {
	Create(ctx context.Context, a Announcement) (Announcement, error)
	Get(ctx context.Context, id uuid.UUID) (Announcement, error)
	List(ctx context.Context) ([]Announcement, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const announcementColumns = `id, author_id, title, content, priority, created_at, updated_at`

func scanAnnouncement(row pgx.Row) (Announcement, error) {
	var a Announcement
	err := row.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Content, &a.Priority,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PGRepository) Create(ctx context.Context, a Announcement) (Announcement, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO announcements (id, author_id, title, content, priority)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+announcementColumns,
		a.ID, a.AuthorID, a.Title, a.Content, a.Priority)
	created, err := scanAnnouncement(row)
	if err != nil {
		return Announcement{}, fmt.Errorf("insert announcement: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Announcement, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id)
	a, err := scanAnnouncement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Announcement{}, shared.ErrNotFound
	}
	if err != nil {
		return Announcement{}, fmt.Errorf("get announcement: %w", err)
	}
	return a, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Announcement, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+announcementColumns+` FROM announcements ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	var out []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
