package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orgmanage/orgmanage/internal/roles"
)

// RoleSource lists the roles assigned to a principal.
type RoleSource interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]roles.Role, error)
}

// Resolver derives the current principal's role set. Resolution happens at
// session establishment and after role changes; predicates over the
// returned set are pure. Any resolution failure degrades to the empty set,
// never to elevated access.
type Resolver struct {
	source RoleSource
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewResolver constructs a Resolver. cache may be nil, in which case every
// resolution hits the role source.
func NewResolver(source RoleSource, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{source: source, cache: cache, ttl: ttl, logger: logger}
}

// Resolve returns the role set for the given principal id. An empty or
// unparseable id (signed-out session) yields the empty set.
func (r *Resolver) Resolve(ctx context.Context, userID string) roles.Set {
	if userID == "" {
		return roles.Set{}
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return roles.Set{}
	}

	if cached, ok := r.fromCache(ctx, id); ok {
		return cached
	}

	assigned, err := r.source.ListForUser(ctx, id)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("resolve roles", slog.String("user_id", userID), slog.Any("error", err))
		}
		return roles.Set{}
	}
	set := roles.NewSet(assigned...)
	r.store(ctx, id, assigned)
	return set
}

// Invalidate drops the cached role set after an assignment change so the
// next request re-resolves.
func (r *Resolver) Invalidate(ctx context.Context, userID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, r.key(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		if r.logger != nil {
			r.logger.Warn("invalidate role cache", slog.Any("error", err))
		}
	}
}

func (r *Resolver) fromCache(ctx context.Context, userID uuid.UUID) (roles.Set, bool) {
	if r.cache == nil {
		return nil, false
	}
	payload, err := r.cache.Get(ctx, r.key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var assigned []roles.Role
	if err := json.Unmarshal(payload, &assigned); err != nil {
		return nil, false
	}
	return roles.NewSet(assigned...), true
}

func (r *Resolver) store(ctx context.Context, userID uuid.UUID, assigned []roles.Role) {
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(assigned)
	if err != nil {
		return
	}
	_ = r.cache.Set(ctx, r.key(userID), payload, r.ttl).Err()
}

func (r *Resolver) key(userID uuid.UUID) string {
	return "roles:" + userID.String()
}
