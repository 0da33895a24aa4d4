package core

import (
	"context"

	"github.com/dkeye/Chorus/internal/domain"
)

// Notifier is the outbound half of the transport adapter.
// Send returns domain.ErrTransportUnavailable when conn is gone.
type Notifier interface {
	Send(conn domain.ConnID, v any) error
	Broadcast(v any)
	Connected(conn domain.ConnID) bool
	// Disconnect forces the transport to drop conn. Unknown ids are ignored.
	Disconnect(conn domain.ConnID)
}

// RoomStore persists the ordered room registry. Save rewrites the whole list.
// Load on a store that was never written returns an empty list.
type RoomStore interface {
	Load(ctx context.Context) ([]domain.RoomName, error)
	Save(ctx context.Context, rooms []domain.RoomName) error
	Close() error
}
