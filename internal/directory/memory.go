// internal/directory/memory.go
package directory

import (
	"context"
	"sync"
	"time"

	"github.com/pokerdealer/dealerd/internal/models"
)

// MemoryStore is an in-process Store for single-node deployments and tests.
// The mutex makes Update mutually exclusive per store, which gives the same
// no-concurrent-mutation guarantee the Postgres store gets from row locks.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*models.Room)}
}

func (s *MemoryStore) Create(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.Code]; exists {
		return ErrCodeTaken
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, code string, fn func(*models.Room) error) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	next := room.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.LastActive = time.Now()
	s.rooms[code] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *MemoryStore) DeleteIdleBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for code, room := range s.rooms {
		if room.LastActive.Before(cutoff) {
			delete(s.rooms, code)
			n++
		}
	}
	return n, nil
}
