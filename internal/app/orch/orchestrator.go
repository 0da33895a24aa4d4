package orch

import (
	"time"

	"github.com/dkeye/Chorus/internal/app"
	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

// Loops is the part of the scheduler the orchestrator drives.
type Loops interface {
	Start(room domain.RoomName) bool
}

// Orchestrator is the single entry point for inbound events and admin actions.
// It keeps the registry, the session table and every observer consistent.
type Orchestrator struct {
	Registry *app.RoomRegistry
	Sessions *app.SessionTable
	Loops    Loops
	Notifier core.Notifier
	Auth     *app.Authenticator
}

// Trace logs a human-readable line and mirrors it to every observer.
func (o *Orchestrator) Trace(line string) {
	log.Info().Str("module", "orch").Msg(line)
	o.Notifier.Broadcast(core.LogLine{Type: "logLine", Line: line, At: time.Now()})
}

// ListRooms returns every registered room with its occupant count.
func (o *Orchestrator) ListRooms() []domain.RoomInfo {
	return o.Sessions.Counts(o.Registry.List())
}

// Dashboard snapshots every room and session, including residual buckets of
// rooms that were just deleted.
func (o *Orchestrator) Dashboard() core.DashboardState {
	all := o.Sessions.All()
	state := core.DashboardState{Type: "dashboardState"}
	for _, name := range o.Registry.List() {
		state.Rooms = append(state.Rooms, roomDetails(name, all[name]))
		delete(all, name)
	}
	for name, members := range all {
		state.Rooms = append(state.Rooms, roomDetails(name, members))
	}
	return state
}

func roomDetails(name domain.RoomName, members []domain.MemberSession) core.RoomDetails {
	d := core.RoomDetails{Type: "roomDetails", Room: name, Members: make([]core.MemberDTO, 0, len(members)), Count: len(members)}
	for _, s := range members {
		d.Members = append(d.Members, core.NewMemberDTO(s))
	}
	return d
}

// publish pushes the counts view and the dashboard to every observer.
func (o *Orchestrator) publish() {
	o.Notifier.Broadcast(core.RoomsUpdated{Type: "roomsUpdated", Rooms: o.ListRooms()})
	o.Notifier.Broadcast(o.Dashboard())
}
