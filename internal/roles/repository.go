package roles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for role assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForUser returns all roles assigned to the given principal.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		out = append(out, Role(role))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Replace swaps the principal's role set for the provided one. The
// delete-then-insert shape keeps replacement idempotent.
func (r *Repository) Replace(ctx context.Context, userID uuid.UUID, rs []Role) error {
	for _, role := range rs {
		if !role.Valid() {
			return fmt.Errorf("roles: unknown role %q", role)
		}
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, role := range rs {
		if _, err := tx.Exec(ctx, `INSERT INTO user_roles (id, user_id, role) VALUES ($1, $2, $3)`, uuid.New(), userID, string(role)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// UsersWithAnyRole returns the distinct principals holding at least one of rs.
func (r *Repository) UsersWithAnyRole(ctx context.Context, rs ...Role) ([]uuid.UUID, error) {
	if len(rs) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(rs))
	for _, role := range rs {
		names = append(names, string(role))
	}
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM user_roles WHERE role = ANY($1)`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
