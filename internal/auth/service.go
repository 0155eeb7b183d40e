package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/orgmanage/orgmanage/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials and returns the
// principal's profile, provisioning it on first login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Profile, error) {
	account, err := s.repo.FindAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return s.repo.EnsureProfile(ctx, account)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// Profile fetches the principal's profile.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.GetProfile(ctx, id)
}

// UpdateProfile applies profile edits for the principal.
func (s *Service) UpdateProfile(ctx context.Context, profile *Profile) error {
	profile.FullName = strings.TrimSpace(profile.FullName)
	profile.Department = strings.TrimSpace(profile.Department)
	profile.Phone = strings.TrimSpace(profile.Phone)
	return s.repo.UpdateProfile(ctx, profile)
}
