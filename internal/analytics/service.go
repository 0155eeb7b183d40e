package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/orgmanage/orgmanage/internal/policy"
	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/sales"
)

// TransactionSource feeds the aggregation functions.
type TransactionSource interface {
	ListSince(ctx context.Context, since time.Time, owner *uuid.UUID) ([]sales.Transaction, error)
}

// Dashboard bundles every aggregate the overview page renders.
type Dashboard struct {
	Summary          Summary          `json:"summary"`
	RevenueByDay     []DayRevenue     `json:"revenue_by_day"`
	RevenueByRegion  []RegionRevenue  `json:"revenue_by_region"`
	RevenueBySegment []SegmentRevenue `json:"revenue_by_segment"`
	Window           int              `json:"window"`
}

// Service coordinates aggregation with the cache layer.
type Service struct {
	source TransactionSource
	cache  *Cache
}

// NewService wires a TransactionSource with a Cache helper.
func NewService(source TransactionSource, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

// GetDashboard resolves the dashboard aggregates using cache-aware lookups.
// Principals without a book-wide role see aggregates over their own
// transactions only.
func (s *Service) GetDashboard(ctx context.Context, actor uuid.UUID, set roles.Set, window int) (Dashboard, error) {
	if window <= 0 {
		window = 30
	}
	var owner *uuid.UUID
	ownerToken := "all"
	if !policy.CanViewAllTransactions(set) {
		owner = &actor
		ownerToken = actor.String()
	}

	loader := func(ctx context.Context) (interface{}, error) {
		txs, err := s.source.ListSince(ctx, time.Time{}, owner)
		if err != nil {
			return Dashboard{}, fmt.Errorf("load transactions: %w", err)
		}
		return Dashboard{
			Summary:          Summarize(txs),
			RevenueByDay:     RevenueByDay(txs, window),
			RevenueByRegion:  RevenueByRegion(txs),
			RevenueBySegment: RevenueBySegment(txs),
			Window:           window,
		}, nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		return value.(Dashboard), nil
	}

	key, err := s.cache.BuildKey(ctx, "analytics", "dashboard", ownerToken, strconv.Itoa(window))
	if err != nil {
		return Dashboard{}, err
	}
	var dashboard Dashboard
	if err := s.cache.FetchJSON(ctx, key, &dashboard, loader); err != nil {
		return Dashboard{}, err
	}
	return dashboard, nil
}

// ProgressFor computes a goal's standing from the owner's transactions in
// the goal window.
func (s *Service) ProgressFor(ctx context.Context, win GoalWindow) (Progress, error) {
	txs, err := s.source.ListSince(ctx, win.Start, &win.OwnerID)
	if err != nil {
		return Progress{}, fmt.Errorf("load transactions: %w", err)
	}
	return GoalProgress(win, txs), nil
}
