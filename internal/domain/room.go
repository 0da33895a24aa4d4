package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const MaxRoomNameLen = 64

// RoomName is the canonical (trimmed, upper-cased) identifier of a room.
type RoomName string

var upper = cases.Upper(language.Und)

// NormalizeRoomName trims and case-folds a raw room id.
func NormalizeRoomName(raw string) (RoomName, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidRoomName
	}
	s = upper.String(s)
	if len(s) > MaxRoomNameLen {
		return "", ErrInvalidRoomName
	}
	return RoomName(s), nil
}

// RoomInfo is the rooms-with-counts view shared with every observer.
type RoomInfo struct {
	Name        RoomName `json:"name"`
	MemberCount int      `json:"client_count"`
}
