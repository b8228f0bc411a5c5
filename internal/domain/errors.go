package domain

import "errors"

// Sentinel errors shared across services, stores and adapters. Callers match
// with errors.Is after unwrapping.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownUser        = errors.New("user does not exist")
	ErrAlreadyQueued      = errors.New("matchmaking request already exists")
	ErrNotParticipant     = errors.New("user is not a participant of this match")
	ErrMatchCompleted     = errors.New("match already completed")
	ErrRoomFull           = errors.New("room is full")
	ErrInvalidDirection   = errors.New("invalid move direction")
	ErrUnknownSeat        = errors.New("unknown seat")
	ErrInvalidPlayerCount = errors.New("invalid number of players, only 4, 8 or 16 are allowed")
	ErrRegistrationClosed = errors.New("tournament registration is closed")
	ErrAlreadyRegistered  = errors.New("user is already registered for this tournament")
)
