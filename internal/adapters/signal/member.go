package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(conn *WsSignalConn, data []byte) {
	type joinPayload struct {
		Type   string `json:"type"`
		Room   string `json:"room"`
		Member string `json:"member"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendJoinError(conn, "bad_payload", p.Room)
		return
	}
	if ctl.Joins != nil && !ctl.Joins.Allow(conn.id) {
		log.Warn().Str("module", "signal").Str("conn", string(conn.id)).Msg("join rate limited")
		ctl.sendJoinError(conn, "rate_limited", p.Room)
		return
	}

	res, err := ctl.Orch.Join(conn.id, p.Room, p.Member)
	switch {
	case errors.Is(err, domain.ErrUnknownRoom):
		ctl.sendJoinError(conn, "unknown_room", p.Room)
		return
	case errors.Is(err, domain.ErrInvalidRoomName):
		ctl.sendJoinError(conn, "invalid_room", p.Room)
		return
	case errors.Is(err, domain.ErrInvalidMemberID):
		ctl.sendJoinError(conn, "invalid_member", p.Room)
		return
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("conn", string(conn.id)).Msg("join failed")
		ctl.sendJoinError(conn, "internal", p.Room)
		return
	}

	resp := struct {
		Type   string          `json:"type"`
		Room   domain.RoomName `json:"room"`
		Member domain.MemberID `json:"member"`
		Count  int             `json:"count"`
	}{
		Type:   "joined",
		Room:   res.Session.Room,
		Member: res.Session.Member,
		Count:  ctl.Orch.Sessions.Count(res.Session.Room),
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) sendJoinError(conn *WsSignalConn, code, room string) {
	ctl.sendJSON(conn, map[string]any{
		"type":  "joinError",
		"error": code,
		"room":  room,
	})
}

// handleLeave exits the current room; the socket stays open.
func (ctl *SignalWSController) handleLeave(conn *WsSignalConn) {
	removed := ctl.Orch.Leave(conn.id)
	ctl.sendJSON(conn, map[string]any{
		"type":    "left",
		"removed": removed,
	})
}

func (ctl *SignalWSController) handleHeartbeat(conn *WsSignalConn) {
	if !ctl.Orch.Heartbeat(conn.id) {
		log.Debug().Str("module", "signal").Str("conn", string(conn.id)).Msg("heartbeat without session")
	}
}

func (ctl *SignalWSController) handlePause(conn *WsSignalConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Paused bool   `json:"paused"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad pause payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if !ctl.Orch.Pause(conn.id, p.Paused) {
		ctl.sendError(conn, "not_in_room")
		return
	}
	ctl.sendJSON(conn, map[string]any{
		"type":   "pauseState",
		"paused": p.Paused,
	})
}

func (ctl *SignalWSController) handleListRooms(conn *WsSignalConn) {
	ctl.sendJSON(conn, core.RoomsUpdated{Type: "roomsList", Rooms: ctl.Orch.ListRooms()})
}

func (ctl *SignalWSController) handleWhoAmI(conn *WsSignalConn) {
	resp := struct {
		Type   string          `json:"type"`
		Conn   domain.ConnID   `json:"conn"`
		Room   domain.RoomName `json:"room,omitempty"`
		Member domain.MemberID `json:"member,omitempty"`
		Paused bool            `json:"paused"`
		Admin  bool            `json:"admin"`
	}{
		Type:  "whoami",
		Conn:  conn.id,
		Admin: conn.admin.Load(),
	}
	if s, ok := ctl.Orch.Sessions.Lookup(conn.id); ok {
		resp.Room = s.Room
		resp.Member = s.Member
		resp.Paused = s.Paused
	}
	ctl.sendJSON(conn, resp)
}
