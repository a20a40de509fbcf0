package store

import (
	"context"
	"sort"
	"sync"

	"tradein-engine/core/types"
	apperrors "tradein-engine/internal/errors"
)

// MemoryStore keeps sessions in a mutex-guarded map. Sessions are
// deep-copied on the way in and out so callers never alias stored
// state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session
}

// NewMemory creates an empty in-memory store
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*types.Session)}
}

// Create implements SessionStore
func (m *MemoryStore) Create(ctx context.Context, s *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return apperrors.Conflict("session already exists: " + s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Get implements SessionStore
func (m *MemoryStore) Get(ctx context.Context, id string) (*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("session", id)
	}
	return s.Clone(), nil
}

// Update implements SessionStore
func (m *MemoryStore) Update(ctx context.Context, s *types.Session, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[s.ID]
	if !ok {
		return apperrors.NotFound("session", s.ID)
	}
	if current.Version != expectedVersion {
		return apperrors.Conflict("session version mismatch").
			WithContext("session_id", s.ID).
			WithContext("expected_version", expectedVersion).
			WithContext("stored_version", current.Version)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Delete implements SessionStore
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return apperrors.NotFound("session", id)
	}
	delete(m.sessions, id)
	return nil
}

// List implements SessionStore
func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Session, 0)
	for _, s := range m.sessions {
		if matches(s, filter) {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Close implements SessionStore
func (m *MemoryStore) Close() error {
	return nil
}
