// Package domain contains entities without logic, just meta-data
package domain

import (
	"strings"
	"time"
)

const MaxMemberIDLen = 64

type (
	// ConnID identifies one transport connection. It changes on every reconnect.
	ConnID string
	// MemberID is supplied by the client and stays stable across reconnects.
	MemberID string
)

// NormalizeMemberID trims a raw member id and checks its length.
func NormalizeMemberID(raw string) (MemberID, error) {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > MaxMemberIDLen {
		return "", ErrInvalidMemberID
	}
	return MemberID(s), nil
}

// MemberSession is one participant's live membership inside a room.
// Values handed out of the session table are copies.
type MemberSession struct {
	Room     RoomName  `json:"room"`
	Conn     ConnID    `json:"conn"`
	Member   MemberID  `json:"member"`
	Paused   bool      `json:"paused"`
	JoinedAt time.Time `json:"joined_at"`
	LastSeen time.Time `json:"last_seen"`
}
