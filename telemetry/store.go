package telemetry

import (
	"context"
	"sync"
	"time"

	"discord-server-status/status"
)

// Store keeps the most recent snapshot pushed by an external producer.
// It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	snap       *status.Snapshot
	currentMap string
	updatedAt  time.Time
}

func NewStore() *Store {
	return &Store{}
}

// Put replaces the stored snapshot.
func (s *Store) Put(snap status.Snapshot, currentMap string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = &snap
	s.currentMap = currentMap
	s.updatedAt = at
}

func (s *Store) Snapshot(ctx context.Context) (status.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return status.Snapshot{}, ErrNoSnapshot
	}
	return *s.snap, nil
}

func (s *Store) CurrentMap(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return "", ErrNoSnapshot
	}
	return s.currentMap, nil
}

// UpdatedAt returns when the last snapshot was stored; zero if never.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
