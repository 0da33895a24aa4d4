package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/Chorus/internal/app"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) OnConnect(conn domain.ConnID) {
	o.Trace(fmt.Sprintf("socket connected: %s", conn))
}

// Join places conn in room as member and makes sure the room loop runs.
func (o *Orchestrator) Join(conn domain.ConnID, rawRoom, rawMember string) (app.JoinResult, error) {
	room, err := domain.NormalizeRoomName(rawRoom)
	if err != nil {
		return app.JoinResult{}, err
	}
	member, err := domain.NormalizeMemberID(rawMember)
	if err != nil {
		return app.JoinResult{}, err
	}

	res, err := o.Sessions.Join(room, member, conn)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRoom) {
			o.Trace(fmt.Sprintf("join rejected: room %s does not exist (member %s)", room, member))
		}
		return app.JoinResult{}, err
	}
	if res.Displaced != "" {
		log.Info().Str("module", "orch").Str("room", string(room)).Str("member", string(member)).
			Str("old_conn", string(res.Displaced)).Str("conn", string(conn)).Msg("member reconnected")
	}

	o.Trace(fmt.Sprintf("[+] %s joined room %s", member, room))
	o.publish()
	o.Loops.Start(room)
	return res, nil
}

// Leave removes conn's session. It reports whether anything was removed.
func (o *Orchestrator) Leave(conn domain.ConnID) bool {
	s, ok := o.Sessions.Leave(conn)
	if !ok {
		return false
	}
	o.Trace(fmt.Sprintf("[-] %s left room %s", s.Member, s.Room))
	o.publish()
	return true
}

func (o *Orchestrator) OnDisconnect(conn domain.ConnID) {
	o.Trace(fmt.Sprintf("socket disconnected: %s", conn))
	o.Leave(conn)
}

func (o *Orchestrator) Pause(conn domain.ConnID, paused bool) bool {
	if !o.Sessions.SetPaused(conn, paused) {
		return false
	}
	if s, ok := o.Sessions.Lookup(conn); ok {
		state := "resumed"
		if paused {
			state = "paused"
		}
		o.Trace(fmt.Sprintf("%s %s in room %s", s.Member, state, s.Room))
	}
	o.Notifier.Broadcast(o.Dashboard())
	return true
}

func (o *Orchestrator) Heartbeat(conn domain.ConnID) bool {
	return o.Sessions.Touch(conn)
}

// OnEvict handles sessions dropped by the reaper.
func (o *Orchestrator) OnEvict(evicted []domain.MemberSession) {
	for _, s := range evicted {
		o.Trace(fmt.Sprintf("[x] %s timed out in room %s", s.Member, s.Room))
		o.Notifier.Disconnect(s.Conn)
	}
	o.publish()
}
