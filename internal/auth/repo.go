package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgmanage/orgmanage/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	EnsureProfile(ctx context.Context, account *Account) (*Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, profile *Profile) error
	CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindAccountByEmail fetches an account by email.
func (r *PGRepository) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	var acc Account
	err := r.pool.QueryRow(ctx, `SELECT id, email, password_hash, is_active, created_at, updated_at
FROM accounts WHERE lower(email) = lower($1)`, email).
		Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// EnsureProfile returns the profile for the account, creating it on first
// authentication.
func (r *PGRepository) EnsureProfile(ctx context.Context, account *Account) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `INSERT INTO profiles (id, email)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET updated_at = NOW()
RETURNING id, email, COALESCE(full_name, ''), COALESCE(department, ''), COALESCE(phone, ''), COALESCE(avatar_url, ''), created_at, updated_at`,
		account.ID, account.Email).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Department, &p.Phone, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile fetches a profile by principal id.
func (r *PGRepository) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `SELECT id, email, COALESCE(full_name, ''), COALESCE(department, ''), COALESCE(phone, ''), COALESCE(avatar_url, ''), created_at, updated_at
FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Department, &p.Phone, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProfile persists profile edits.
func (r *PGRepository) UpdateProfile(ctx context.Context, profile *Profile) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles
SET full_name = $2, department = $3, phone = $4, avatar_url = $5, updated_at = NOW()
WHERE id = $1`, profile.ID, profile.FullName, profile.Department, profile.Phone, profile.AvatarURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`, id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)

// AllUserIDs lists every profile id, used for org-wide notification
// broadcasts.
func (r *PGRepository) AllUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM profiles`)
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
	return out, rows.Err()
}
