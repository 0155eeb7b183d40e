package hr

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

// Repository persists the roster and leave requests.
type Repository interface {
	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	UpdateEmployee(ctx context.Context, e Employee) (Employee, error)
	DeleteEmployee(ctx context.Context, id uuid.UUID) error

	CreateLeave(ctx context.Context, lr LeaveRequest) (LeaveRequest, error)
	GetLeave(ctx context.Context, id uuid.UUID) (LeaveRequest, error)
	ListLeave(ctx context.Context, owner *uuid.UUID) ([]LeaveRequest, error)
	ReviewLeave(ctx context.Context, id, reviewer uuid.UUID, status string, at time.Time) (LeaveRequest, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const employeeColumns = `id, profile_id, full_name, email, position, department, hire_date, status, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.ProfileID, &e.FullName, &e.Email, &e.Position,
		&e.Department, &e.HireDate, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *PGRepository) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO employees (id, profile_id, full_name, email, position, department, hire_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+employeeColumns,
		e.ID, e.ProfileID, e.FullName, e.Email, e.Position, e.Department, e.HireDate, e.Status)
	created, err := scanEmployee(row)
	if err != nil {
		return Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetEmployee(ctx context.Context, id uuid.UUID) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, shared.ErrNotFound
	}
	if err != nil {
		return Employee{}, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (r *PGRepository) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepository) UpdateEmployee(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE employees
		SET full_name = $2, email = $3, position = $4, department = $5,
		    hire_date = $6, status = $7, profile_id = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+employeeColumns,
		e.ID, e.FullName, e.Email, e.Position, e.Department, e.HireDate, e.Status, e.ProfileID)
	updated, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, shared.ErrNotFound
	}
	if err != nil {
		return Employee{}, fmt.Errorf("update employee: %w", err)
	}
	return updated, nil
}

func (r *PGRepository) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const leaveColumns = `id, user_id, leave_type, start_date, end_date, reason, status, reviewed_by, reviewed_at, created_at, updated_at`

func scanLeave(row pgx.Row) (LeaveRequest, error) {
	var lr LeaveRequest
	err := row.Scan(&lr.ID, &lr.UserID, &lr.LeaveType, &lr.StartDate, &lr.EndDate,
		&lr.Reason, &lr.Status, &lr.ReviewedBy, &lr.ReviewedAt, &lr.CreatedAt, &lr.UpdatedAt)
	return lr, err
}

func (r *PGRepository) CreateLeave(ctx context.Context, lr LeaveRequest) (LeaveRequest, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leave_requests (id, user_id, leave_type, start_date, end_date, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+leaveColumns,
		lr.ID, lr.UserID, lr.LeaveType, lr.StartDate, lr.EndDate, lr.Reason, lr.Status)
	created, err := scanLeave(row)
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("insert leave request: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetLeave(ctx context.Context, id uuid.UUID) (LeaveRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leaveColumns+` FROM leave_requests WHERE id = $1`, id)
	lr, err := scanLeave(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, shared.ErrNotFound
	}
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("get leave request: %w", err)
	}
	return lr, nil
}

func (r *PGRepository) ListLeave(ctx context.Context, owner *uuid.UUID) ([]LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests`
	args := []any{}
	if owner != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *owner)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leave requests: %w", err)
	}
	defer rows.Close()

	var out []LeaveRequest
	for rows.Next() {
		lr, err := scanLeave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leave request: %w", err)
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// ReviewLeave stamps a decision. Concurrent reviewers race last-write-wins;
// the service rejects reviews of already settled requests it can observe.
func (r *PGRepository) ReviewLeave(ctx context.Context, id, reviewer uuid.UUID, status string, at time.Time) (LeaveRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leave_requests
		SET status = $3, reviewed_by = $2, reviewed_at = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+leaveColumns,
		id, reviewer, status, at)
	lr, err := scanLeave(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, shared.ErrNotFound
	}
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("review leave request: %w", err)
	}
	return lr, nil
}
