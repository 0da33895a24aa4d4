package core

import "github.com/dkeye/Chorus/internal/domain"

// Frame is a raw encoded payload ready for the wire.
type Frame []byte

// SignalConnection is one outbound message channel to a client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	ID() domain.ConnID
	TrySend(Frame) error
	IsClosed() bool
	// Drain stops accepting frames and closes once queued frames are flushed.
	Drain()
	Close()
}
