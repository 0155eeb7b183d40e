package admin

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/shared"
)

type memoryRepo struct {
	users map[uuid.UUID]User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[uuid.UUID]User{}}
}

func (m *memoryRepo) ListUsers(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryRepo) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) UpdateProfile(_ context.Context, u User) error {
	current, ok := m.users[u.ID]
	if !ok {
		return shared.ErrNotFound
	}
	u.Roles = current.Roles
	u.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = u
	return nil
}

type captureRoleStore struct {
	repo     *memoryRepo
	replaced map[uuid.UUID][]roles.Role
}

func (c *captureRoleStore) Replace(_ context.Context, userID uuid.UUID, rs []roles.Role) error {
	if c.replaced == nil {
		c.replaced = map[uuid.UUID][]roles.Role{}
	}
	c.replaced[userID] = rs
	u := c.repo.users[userID]
	u.Roles = rs
	c.repo.users[userID] = u
	return nil
}

type captureInvalidator struct {
	dropped []uuid.UUID
}

func (c *captureInvalidator) Invalidate(_ context.Context, userID uuid.UUID) {
	c.dropped = append(c.dropped, userID)
}

type captureAuditor struct {
	logs []shared.AuditLog
}

func (c *captureAuditor) Record(_ context.Context, log shared.AuditLog) error {
	c.logs = append(c.logs, log)
	return nil
}

type captureNotifier struct {
	kinds []string
	users []uuid.UUID
}

func (c *captureNotifier) NotifyUser(_ context.Context, userID uuid.UUID, kind, _, _ string, _ uuid.UUID) {
	c.kinds = append(c.kinds, kind)
	c.users = append(c.users, userID)
}

func newTestService() (*Service, *memoryRepo, *captureRoleStore, *captureInvalidator, *captureAuditor, *captureNotifier) {
	repo := newMemoryRepo()
	store := &captureRoleStore{repo: repo}
	inv := &captureInvalidator{}
	audit := &captureAuditor{}
	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, store, inv, audit, notifier), repo, store, inv, audit, notifier
}

func seedUser(repo *memoryRepo, rs ...roles.Role) User {
	u := User{
		ID:       uuid.New(),
		Email:    "ama@orgmanage.local",
		FullName: "Ama Mensah",
		Roles:    rs,
	}
	repo.users[u.ID] = u
	return u
}

func TestUpdateUserReplacesRoleSet(t *testing.T) {
	svc, repo, store, inv, audit, notifier := newTestService()
	u := seedUser(repo, roles.RoleUser)
	actor := uuid.New()

	updated, err := svc.UpdateUser(context.Background(), actor, u.ID, UpdateRequest{
		FullName: "Ama Mensah",
		Roles:    []string{"hr", "manager"},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []roles.Role{roles.RoleHR, roles.RoleManager}, updated.Roles)

	require.ElementsMatch(t, []roles.Role{roles.RoleHR, roles.RoleManager}, store.replaced[u.ID])
	require.Equal(t, []uuid.UUID{u.ID}, inv.dropped)
	require.Equal(t, []string{"role_change"}, notifier.kinds)
	require.Equal(t, []uuid.UUID{u.ID}, notifier.users)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "admin.update_user", audit.logs[0].Action)
	require.Equal(t, actor.String(), audit.logs[0].ActorID)
}

func TestUpdateUserSkipsRoleMachineryWhenSetUnchanged(t *testing.T) {
	svc, repo, store, inv, _, notifier := newTestService()
	u := seedUser(repo, roles.RoleFinance)

	updated, err := svc.UpdateUser(context.Background(), uuid.New(), u.ID, UpdateRequest{
		FullName:   "Ama A. Mensah",
		Department: "Finance",
		Roles:      []string{"finance"},
	})
	require.NoError(t, err)
	require.Equal(t, "Ama A. Mensah", updated.FullName)
	require.Equal(t, "Finance", updated.Department)

	require.Empty(t, store.replaced)
	require.Empty(t, inv.dropped)
	require.Empty(t, notifier.kinds)
}

func TestUpdateUserRejectsUnknownRole(t *testing.T) {
	svc, repo, store, _, _, _ := newTestService()
	u := seedUser(repo, roles.RoleUser)

	_, err := svc.UpdateUser(context.Background(), uuid.New(), u.ID, UpdateRequest{
		FullName: "Ama Mensah",
		Roles:    []string{"superadmin"},
	})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.Empty(t, store.replaced)
	require.Equal(t, "Ama Mensah", repo.users[u.ID].FullName)
}

func TestUpdateUserDeduplicatesRoles(t *testing.T) {
	svc, repo, store, _, _, _ := newTestService()
	u := seedUser(repo)

	updated, err := svc.UpdateUser(context.Background(), uuid.New(), u.ID, UpdateRequest{
		FullName: "Ama Mensah",
		Roles:    []string{"it", "IT", " it "},
	})
	require.NoError(t, err)
	require.Equal(t, []roles.Role{roles.RoleIT}, updated.Roles)
	require.Equal(t, []roles.Role{roles.RoleIT}, store.replaced[u.ID])
}

func TestUpdateUserUnknownPrincipal(t *testing.T) {
	svc, _, _, _, _, _ := newTestService()

	_, err := svc.UpdateUser(context.Background(), uuid.New(), uuid.New(), UpdateRequest{
		FullName: "Nobody",
		Roles:    []string{"user"},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
