package duel

import "errors"

// Caller-visible domain errors. The message text is what the client sees
// in the error payload, so these read as UI copy rather than Go style.
var (
	ErrRoomNotFound   = errors.New("Room not found")
	ErrRoomFull       = errors.New("Room full")
	ErrGameInProgress = errors.New("Game already in progress")
	ErrInvalidWord    = errors.New("Invalid word")
)

// ErrNotSetter marks a set-word from a connection that does not hold the
// setter seat. The dispatch layer drops these silently (stale client race).
var ErrNotSetter = errors.New("not the setter")
