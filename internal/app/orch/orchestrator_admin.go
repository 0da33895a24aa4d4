package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

const roomRemovedReason = "room was deleted by an administrator"

// Login checks the shared admin credential.
func (o *Orchestrator) Login(password string) error {
	if !o.Auth.Check(password) {
		log.Warn().Str("module", "orch").Msg("admin login rejected")
		return domain.ErrInvalidCredential
	}
	log.Info().Str("module", "orch").Msg("admin login")
	return nil
}

// CreateRoom registers a room. Creating an existing room is a no-op.
// Persistence failures are logged and do not undo the creation.
func (o *Orchestrator) CreateRoom(ctx context.Context, raw string) (domain.RoomName, bool, error) {
	name, created, err := o.Registry.Create(ctx, raw)
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		return "", false, err
	}
	if !created {
		return name, false, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room", string(name)).Msg("room created in memory only")
	}
	o.Trace(fmt.Sprintf("room %s created", name))
	o.publish()
	return name, true, nil
}

// DeleteRoom unregisters a room, tells every member and clears its bucket.
// The room loop notices on its next cycle and exits.
func (o *Orchestrator) DeleteRoom(ctx context.Context, raw string) (bool, error) {
	name, removed, err := o.Registry.Remove(ctx, raw)
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		return false, err
	}
	if !removed {
		return false, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room", string(name)).Msg("room removed in memory only")
	}

	members := o.Sessions.ClearRoom(name)
	for _, s := range members {
		msg := core.RoomRemoved{Type: "roomRemoved", Room: name, Reason: roomRemovedReason}
		if err := o.Notifier.Send(s.Conn, msg); err != nil {
			log.Debug().Err(err).Str("module", "orch").Str("conn", string(s.Conn)).Msg("roomRemoved not delivered")
		}
	}
	o.Trace(fmt.Sprintf("room %s deleted, %d member(s) notified", name, len(members)))
	o.publish()
	return true, nil
}

// Kick drops conn at the transport and removes its session.
// It reports false when conn is neither connected nor in a room.
func (o *Orchestrator) Kick(conn domain.ConnID) bool {
	connected := o.Notifier.Connected(conn)
	s, inRoom := o.Sessions.Lookup(conn)
	if !connected && !inRoom {
		return false
	}
	if connected {
		_ = o.Notifier.Send(conn, core.MemberKicked{Type: "memberKicked"})
		o.Notifier.Disconnect(conn)
	}
	o.Sessions.Leave(conn)
	if inRoom {
		o.Trace(fmt.Sprintf("[!] %s kicked from room %s", s.Member, s.Room))
	} else {
		o.Trace(fmt.Sprintf("[!] connection %s kicked", conn))
	}
	o.publish()
	return true
}

// RoomDetails returns the live member list of a registered room.
func (o *Orchestrator) RoomDetails(raw string) (core.RoomDetails, error) {
	name, err := domain.NormalizeRoomName(raw)
	if err != nil {
		return core.RoomDetails{}, err
	}
	if !o.Registry.Exists(name) {
		return core.RoomDetails{}, domain.ErrUnknownRoom
	}
	return roomDetails(name, o.Sessions.Snapshot(name)), nil
}
