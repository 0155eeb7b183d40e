package realtime

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Store is a reconciled cache of one collection, ordered by created
// timestamp descending (newest first), the order every dashboard view
// renders. Reconciliation is keyed by record id and a monotonic
// updated_at, so a finite burst of events converges to the same state in
// any delivery order.
type Store struct {
	mu      sync.RWMutex
	records []Record
	deleted map[uuid.UUID]struct{}
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{deleted: make(map[uuid.UUID]struct{})}
}

// Apply reconciles a single change event into the cache.
func (s *Store) Apply(event ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Action {
	case ActionInsert, ActionUpdate:
		s.upsert(event.Record)
	case ActionDelete:
		s.remove(event.Record.ID)
	}
}

func (s *Store) upsert(rec Record) {
	// A delete observed earlier in the burst wins over a reordered
	// insert/update for the same id.
	if _, gone := s.deleted[rec.ID]; gone {
		return
	}
	for i, existing := range s.records {
		if existing.ID == rec.ID {
			// Stale event from a reordered burst: keep the newer row.
			if rec.UpdatedAt.Before(existing.UpdatedAt) {
				return
			}
			s.records[i] = rec
			s.sortLocked()
			return
		}
	}
	s.records = append(s.records, rec)
	s.sortLocked()
}

func (s *Store) remove(id uuid.UUID) {
	s.deleted[id] = struct{}{}
	for i, existing := range s.records {
		if existing.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return
		}
	}
}

// Replace swaps the cache for a freshly fetched state. Used on (re)connect
// so the cache self-heals instead of trusting buffered events.
func (s *Store) Replace(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make([]Record, len(records))
	copy(s.records, records)
	s.deleted = make(map[uuid.UUID]struct{})
	s.sortLocked()
}

// Snapshot returns a copy of the cached records, newest first.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.records, func(i, j int) bool {
		if !s.records[i].CreatedAt.Equal(s.records[j].CreatedAt) {
			return s.records[i].CreatedAt.After(s.records[j].CreatedAt)
		}
		return s.records[i].ID.String() > s.records[j].ID.String()
	})
}
