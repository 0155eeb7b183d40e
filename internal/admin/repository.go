package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/shared"
)

// Repository reads and mutates principals for the admin panel.
type Repository interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	UpdateProfile(ctx context.Context, u User) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userQuery = `
	SELECT p.id, p.email, p.full_name, p.department, p.phone, p.avatar_url,
	       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}'),
	       p.created_at, p.updated_at
	FROM profiles p
	LEFT JOIN user_roles ur ON ur.user_id = p.id`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var assigned []string
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Department, &u.Phone,
		&u.AvatarURL, &assigned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	u.Roles = make([]roles.Role, 0, len(assigned))
	for _, r := range assigned {
		u.Roles = append(u.Roles, roles.Role(r))
	}
	return u, nil
}

func (r *PGRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, userQuery+` GROUP BY p.id ORDER BY p.full_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, userQuery+` WHERE p.id = $1 GROUP BY p.id`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PGRepository) UpdateProfile(ctx context.Context, u User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET full_name = $2, department = $3, phone = $4, avatar_url = $5, updated_at = now()
		WHERE id = $1`,
		u.ID, u.FullName, u.Department, u.Phone, u.AvatarURL)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
