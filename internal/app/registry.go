package app

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomRegistry is the durable, ordered list of joinable rooms.
// The in-memory list is authoritative; the store is best-effort durability.
type RoomRegistry struct {
	// wmu serializes mutate+persist so concurrent writers never save a stale list.
	wmu   sync.Mutex
	mu    sync.RWMutex
	rooms []domain.RoomName
	store core.RoomStore
}

func NewRoomRegistry(store core.RoomStore) *RoomRegistry {
	return &RoomRegistry{store: store}
}

// Load replaces the in-memory list with the stored one.
func (r *RoomRegistry) Load(ctx context.Context) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	rooms, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}
	out := make([]domain.RoomName, 0, len(rooms))
	for _, raw := range rooms {
		name, err := domain.NormalizeRoomName(string(raw))
		if err != nil || slices.Contains(out, name) {
			log.Warn().Str("module", "app.registry").Str("room", string(raw)).Msg("skipping invalid stored room")
			continue
		}
		out = append(out, name)
	}

	r.mu.Lock()
	r.rooms = out
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Int("rooms", len(out)).Msg("registry loaded")
	return nil
}

// Create adds a room. It reports false (and no error) when the room already exists.
// A non-nil error wrapping domain.ErrPersistence means the room was added but not saved.
func (r *RoomRegistry) Create(ctx context.Context, raw string) (domain.RoomName, bool, error) {
	name, err := domain.NormalizeRoomName(raw)
	if err != nil {
		return "", false, err
	}

	r.wmu.Lock()
	defer r.wmu.Unlock()

	r.mu.Lock()
	if slices.Contains(r.rooms, name) {
		r.mu.Unlock()
		return name, false, nil
	}
	r.rooms = append(r.rooms, name)
	snapshot := slices.Clone(r.rooms)
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("room", string(name)).Msg("room created")
	return name, true, r.persist(ctx, snapshot)
}

// Remove deletes a room. It reports false when the room was not registered.
func (r *RoomRegistry) Remove(ctx context.Context, raw string) (domain.RoomName, bool, error) {
	name, err := domain.NormalizeRoomName(raw)
	if err != nil {
		return "", false, err
	}

	r.wmu.Lock()
	defer r.wmu.Unlock()

	r.mu.Lock()
	i := slices.Index(r.rooms, name)
	if i < 0 {
		r.mu.Unlock()
		return name, false, nil
	}
	r.rooms = slices.Delete(r.rooms, i, i+1)
	snapshot := slices.Clone(r.rooms)
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("room", string(name)).Msg("room removed")
	return name, true, r.persist(ctx, snapshot)
}

func (r *RoomRegistry) Exists(name domain.RoomName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.rooms, name)
}

// List returns the rooms in creation order.
func (r *RoomRegistry) List() []domain.RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.rooms)
}

func (r *RoomRegistry) persist(ctx context.Context, rooms []domain.RoomName) error {
	if err := r.store.Save(ctx, rooms); err != nil {
		log.Error().Err(err).Str("module", "app.registry").Int("rooms", len(rooms)).Msg("persist rooms failed")
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}
