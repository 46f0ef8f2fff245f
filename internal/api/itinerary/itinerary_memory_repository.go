package itinerary

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps itineraries in process memory. It is meant for
// local runs and tests; claims are conditional exactly like the database stores.
type MemoryRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]types.Itinerary
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[uuid.UUID]types.Itinerary)}
}

func copyOf(it types.Itinerary) *types.Itinerary {
	out := it
	out.Days = types.CloneDays(it.Days)
	if it.UserID != nil {
		owner := *it.UserID
		out.UserID = &owner
	}
	if it.ExpiresAt != nil {
		exp := *it.ExpiresAt
		out.ExpiresAt = &exp
	}
	return &out
}

func sameOwner(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *MemoryRepository) Create(_ context.Context, it *types.Itinerary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = *copyOf(*it)
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*types.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOf(it), nil
}

func (m *MemoryRepository) Update(_ context.Context, it *types.Itinerary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[it.ID]
	if !ok || !sameOwner(cur.UserID, it.UserID) {
		return ErrNotFound
	}
	m.items[it.ID] = *copyOf(*it)
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id, owner uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok || !cur.OwnedBy(owner) {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryRepository) Claim(_ context.Context, id, owner uuid.UUID, now time.Time) (*types.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if cur.UserID != nil {
		return nil, ErrAlreadyClaimed
	}
	cur.UserID = &owner
	cur.Status = types.StatusSaved
	cur.ExpiresAt = nil
	cur.UpdatedAt = now
	m.items[id] = cur
	return copyOf(cur), nil
}

func (m *MemoryRepository) ListByOwner(_ context.Context, owner uuid.UUID) ([]*types.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Itinerary
	for _, it := range m.items {
		if it.OwnedBy(owner) {
			out = append(out, copyOf(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryRepository) DeleteExpiredDrafts(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, it := range m.items {
		if it.UserID == nil && it.Status == types.StatusDraft && it.ExpiresAt != nil && it.ExpiresAt.Before(now) {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}
