package core

import (
	"time"

	"github.com/dkeye/Chorus/internal/domain"
)

const ActionWrite = "write"

// Instruction asks a member to write Text to TargetMemberID.
type Instruction struct {
	Type           string          `json:"type"`
	Action         string          `json:"action"`
	TargetMemberID domain.MemberID `json:"target_member_id"`
	Text           string          `json:"text"`
}

func NewInstruction(target domain.MemberID, text string) Instruction {
	return Instruction{Type: "instruction", Action: ActionWrite, TargetMemberID: target, Text: text}
}

type RoomRemoved struct {
	Type   string          `json:"type"`
	Room   domain.RoomName `json:"room"`
	Reason string          `json:"reason"`
}

type MemberKicked struct {
	Type string `json:"type"`
}

type RoomsUpdated struct {
	Type  string            `json:"type"`
	Rooms []domain.RoomInfo `json:"rooms"`
}

type LogLine struct {
	Type string    `json:"type"`
	Line string    `json:"line"`
	At   time.Time `json:"at"`
}

// MemberDTO is a read-only view for APIs (no transport internals beyond the conn id admins kick by).
type MemberDTO struct {
	Conn     domain.ConnID   `json:"conn"`
	Member   domain.MemberID `json:"member"`
	Paused   bool            `json:"paused"`
	JoinedAt time.Time       `json:"joined_at"`
	LastSeen time.Time       `json:"last_seen"`
}

func NewMemberDTO(s domain.MemberSession) MemberDTO {
	return MemberDTO{Conn: s.Conn, Member: s.Member, Paused: s.Paused, JoinedAt: s.JoinedAt, LastSeen: s.LastSeen}
}

type RoomDetails struct {
	Type    string          `json:"type"`
	Room    domain.RoomName `json:"room"`
	Members []MemberDTO     `json:"members"`
	Count   int             `json:"count"`
}

// DashboardState is a full room/session snapshot for observers.
type DashboardState struct {
	Type  string        `json:"type"`
	Rooms []RoomDetails `json:"rooms"`
}
