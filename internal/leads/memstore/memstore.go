// Package memstore provides an in-memory implementation of leads.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/atlasgtm/atlas/internal/leads"
)

// Store holds lead runs in memory. Suitable for dev/testing.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*leads.Run // run ID -> run
	seen map[string]string     // lead fingerprint -> run ID (dedup)
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		runs: make(map[string]*leads.Run),
		seen: make(map[string]string),
	}
}

// Get retrieves a run by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*leads.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetByFingerprint retrieves a run by lead fingerprint, for deduplication. Returns a copy.
func (s *Store) GetByFingerprint(_ context.Context, fp string) (*leads.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seen[fp]
	if !ok {
		return nil, false, nil
	}
	r := s.runs[id]
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the run.
func (s *Store) Put(_ context.Context, r *leads.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runs[r.ID] = &cp
	s.seen[r.Fingerprint] = r.ID
	return nil
}
