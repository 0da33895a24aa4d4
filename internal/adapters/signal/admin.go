package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleAdminLogin checks the credential once; the result sticks to this connection.
func (ctl *SignalWSController) handleAdminLogin(conn *WsSignalConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	ok := ctl.Orch.Login(p.Password) == nil
	if ok {
		conn.admin.Store(true)
	}
	ctl.sendJSON(conn, map[string]any{
		"type": "adminLogin",
		"ok":   ok,
	})
	if ok {
		ctl.sendJSON(conn, ctl.Orch.Dashboard())
	}
}

type adminPayload struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Conn string `json:"conn"`
}

func (ctl *SignalWSController) handleAdmin(ctx context.Context, conn *WsSignalConn, kind string, data []byte) {
	var p adminPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", kind).Msg("bad admin payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.id)).Str("type", kind).Msg("admin action")

	switch kind {
	case "admin.createRoom":
		name, created, err := ctl.Orch.CreateRoom(ctx, p.Room)
		if err != nil {
			ctl.sendError(conn, errorCode(err))
			return
		}
		ctl.sendJSON(conn, map[string]any{"type": "roomCreated", "room": name, "created": created})
	case "admin.deleteRoom":
		deleted, err := ctl.Orch.DeleteRoom(ctx, p.Room)
		if err != nil {
			ctl.sendError(conn, errorCode(err))
			return
		}
		ctl.sendJSON(conn, map[string]any{"type": "roomDeleted", "room": p.Room, "deleted": deleted})
	case "admin.kick":
		kicked := ctl.Orch.Kick(domain.ConnID(p.Conn))
		ctl.sendJSON(conn, map[string]any{"type": "kickResult", "conn": p.Conn, "kicked": kicked})
	case "admin.roomDetails":
		details, err := ctl.Orch.RoomDetails(p.Room)
		if err != nil {
			ctl.sendError(conn, errorCode(err))
			return
		}
		ctl.sendJSON(conn, details)
	case "admin.dashboard":
		ctl.sendJSON(conn, ctl.Orch.Dashboard())
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownRoom):
		return "unknown_room"
	case errors.Is(err, domain.ErrInvalidRoomName):
		return "invalid_room"
	case errors.Is(err, domain.ErrInvalidMemberID):
		return "invalid_member"
	default:
		return "internal"
	}
}
