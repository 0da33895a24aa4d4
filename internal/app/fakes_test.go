package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Chorus/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	rooms   []domain.RoomName
	saves   int
	saveErr error
}

func (s *memStore) Load(context.Context) ([]domain.RoomName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rooms), nil
}

func (s *memStore) Save(_ context.Context, rooms []domain.RoomName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.rooms = slices.Clone(rooms)
	return nil
}

func (s *memStore) Close() error { return nil }

var errDiskFull = errors.New("disk full")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type roomSet map[domain.RoomName]bool

func (r roomSet) Exists(name domain.RoomName) bool { return r[name] }
