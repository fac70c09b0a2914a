package services

import (
	"errors"

	"github.com/ftpong/arena-server/arena"
)

// Общие ошибки сервисного слоя, маппятся на HTTP/close-коды в handlers.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation
	ErrValidationFailed    = errors.New("validation failed")
	ErrInvalidDirection    = errors.New("invalid direction")
	ErrUnknownMessageType  = errors.New("unknown message type")
	ErrInvalidCapacity     = errors.New("capacity must be one of 2, 4, 8, 16")
	ErrNameRequired        = errors.New("name is required")
	ErrInvalidReceptionCap = errors.New("reception capacity must be at least 2")

	// State conflicts
	ErrReceptionFull        = errors.New("the reception is full")
	ErrAlreadyInReception   = errors.New("user already belongs to another reception")
	ErrReceptionPlaying     = errors.New("the reception is already playing")
	ErrSlotOccupied         = arena.ErrSlotOccupied
	ErrTournamentNotWaiting = errors.New("tournament is not in waiting state")
	ErrTournamentNotFull    = errors.New("tournament is not full")
	ErrTournamentFull       = errors.New("the tournament is full")
	ErrAlreadyJoined        = errors.New("user already joined tournament")
	ErrMatchAlreadyFinished = errors.New("match is already finished")

	// Access
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrAccessDenied    = errors.New("access denied")

	// Not found, with entity context
	ErrReceptionNotFound       = errors.New("reception not found")
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentMatchNotFound = errors.New("tournament match not found")
)
