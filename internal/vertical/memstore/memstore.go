// Package memstore provides an in-memory implementation of vertical.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/atlasgtm/atlas/internal/vertical"
)

// Store holds vertical records in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*vertical.Vertical // point ID -> record
	vectors map[string][]float32          // point ID -> embedding
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*vertical.Vertical),
		vectors: make(map[string][]float32),
	}
}

// List returns all records, or only active ones. Returns copies.
func (s *Store) List(_ context.Context, includeInactive bool) ([]*vertical.Vertical, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*vertical.Vertical, 0, len(s.byID))
	for _, v := range s.byID {
		if !includeInactive && !v.IsActive {
			continue
		}
		out = append(out, v.Clone())
	}
	return out, nil
}

// GetBySlug retrieves a record by slug. Returns a copy.
func (s *Store) GetBySlug(_ context.Context, slug string) (*vertical.Vertical, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.byID {
		if v.Slug == slug {
			return v.Clone(), true, nil
		}
	}
	return nil, false, nil
}

// Create stores a copy of the record and its vector.
func (s *Store) Create(_ context.Context, v *vertical.Vertical, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[v.ID] = v.Clone()
	s.vectors[v.ID] = append([]float32(nil), vec...)
	return nil
}

// Update rewrites the payload of an existing record, keeping its vector.
func (s *Store) Update(_ context.Context, v *vertical.Vertical) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[v.ID] = v.Clone()
	return nil
}

// Delete removes the record and its vector.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	delete(s.vectors, id)
	return nil
}

// Vector returns the stored embedding for a point, for tests.
func (s *Store) Vector(id string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.vectors[id]
	return vec, ok
}
