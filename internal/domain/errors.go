package domain

import "errors"

var (
	ErrUnknownRoom          = errors.New("unknown room")
	ErrInvalidRoomName      = errors.New("invalid room name")
	ErrInvalidMemberID      = errors.New("invalid member id")
	ErrPersistence          = errors.New("persistence failure")
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrInvalidCredential    = errors.New("invalid credential")
)
