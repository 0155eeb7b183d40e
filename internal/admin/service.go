package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/shared"
)

// RoleStore replaces a principal's assigned role set.
type RoleStore interface {
	Replace(ctx context.Context, userID uuid.UUID, rs []roles.Role) error
}

// Invalidator drops a principal's cached role resolution so the next
// request sees the new grants.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// Auditor persists admin actions to the audit trail.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Notifier tells a principal their grants changed.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, kind, title, message string, relatedID uuid.UUID)
}

// UpdateRequest carries an admin panel edit: profile fields plus the full
// replacement role set.
type UpdateRequest struct {
	FullName   string   `json:"full_name" validate:"required,max=200"`
	Department string   `json:"department" validate:"max=120"`
	Phone      string   `json:"phone" validate:"max=40"`
	AvatarURL  string   `json:"avatar_url" validate:"omitempty,url,max=500"`
	Roles      []string `json:"roles" validate:"required"`
}

// Service provides the admin user/role panel.
type Service struct {
	logger      *slog.Logger
	repo        Repository
	roleStore   RoleStore
	invalidator Invalidator
	audit       Auditor
	notifier    Notifier
}

func NewService(logger *slog.Logger, repo Repository, roleStore RoleStore, invalidator Invalidator, audit Auditor, notifier Notifier) *Service {
	return &Service{
		logger:      logger,
		repo:        repo,
		roleStore:   roleStore,
		invalidator: invalidator,
		audit:       audit,
		notifier:    notifier,
	}
}

// ListUsers returns every principal with their role sets.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one principal.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdateUser rewrites a principal's profile fields and replaces their role
// set. A changed role set invalidates the cached resolution immediately and
// notifies the principal.
func (s *Service) UpdateUser(ctx context.Context, actor, id uuid.UUID, req UpdateRequest) (User, error) {
	next, err := parseRoles(req.Roles)
	if err != nil {
		return User{}, err
	}

	before, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}

	u := before
	u.FullName = strings.TrimSpace(req.FullName)
	u.Department = strings.TrimSpace(req.Department)
	u.Phone = strings.TrimSpace(req.Phone)
	u.AvatarURL = strings.TrimSpace(req.AvatarURL)
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return User{}, err
	}

	rolesChanged := !sameRoles(before.Roles, next)
	if rolesChanged {
		if err := s.roleStore.Replace(ctx, id, next); err != nil {
			return User{}, fmt.Errorf("replace roles: %w", err)
		}
		if s.invalidator != nil {
			s.invalidator.Invalidate(ctx, id)
		}
		if s.notifier != nil {
			s.notifier.NotifyUser(ctx, id, "role_change",
				"Your access changed",
				fmt.Sprintf("Your roles are now: %s", joinRoles(next)),
				id)
		}
	}
	u.Roles = next

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.String(),
			Action:   "admin.update_user",
			Entity:   "profiles",
			EntityID: id.String(),
			Meta: map[string]any{
				"roles_before": before.Roles,
				"roles_after":  next,
			},
		}); err != nil {
			s.logger.Warn("record admin audit", slog.Any("error", err))
		}
	}
	return s.repo.GetUser(ctx, id)
}

func parseRoles(raw []string) ([]roles.Role, error) {
	out := make([]roles.Role, 0, len(raw))
	seen := map[roles.Role]struct{}{}
	for _, v := range raw {
		r := roles.Role(strings.ToLower(strings.TrimSpace(v)))
		if !r.Valid() {
			return nil, fmt.Errorf("%w: role %q", shared.ErrInvalidTransition, v)
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func sameRoles(a, b []roles.Role) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]roles.Role(nil), a...)
	bs := append([]roles.Role(nil), b...)
	sort.Slice(as, func(i, j int) bool { return as[i] < as[j] })
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func joinRoles(rs []roles.Role) string {
	if len(rs) == 0 {
		return "user"
	}
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}
