package models

import (
	"math/bits"
	"time"
)

// TournamentState represents the bracket lifecycle, matching the ENUM in the DB.
type TournamentState string

const (
	TournamentWaiting    TournamentState = "waiting"
	TournamentInProgress TournamentState = "in_progress"
	TournamentFinished   TournamentState = "finished"
)

var validTournamentCapacities = map[int]bool{2: true, 4: true, 8: true, 16: true}

func IsValidTournamentCapacity(n int) bool {
	return validTournamentCapacities[n]
}

type Tournament struct {
	ID              int             `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	CreatorID       int             `json:"creator_id" db:"creator_id"`
	MaxParticipants int             `json:"max_participants" db:"max_participants"`
	WinnerID        *int            `json:"winner_id,omitempty" db:"winner_id"`
	State           TournamentState `json:"state" db:"state"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	BannerKey       *string         `json:"-" db:"banner_key"`
	BannerURL       *string         `json:"banner_url,omitempty" db:"-"`

	// Optional related entities, loaded on demand.
	Participants []TournamentParticipant `json:"participants,omitempty" db:"-"`
	Matches      []TournamentMatch       `json:"matches,omitempty" db:"-"`
}

// TotalRounds is log2 of the capacity. Capacities are validated to be powers
// of two, so the bit trick is exact.
func (t *Tournament) TotalRounds() int {
	return bits.Len(uint(t.MaxParticipants)) - 1
}

type TournamentParticipant struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	JoinedAt     time.Time `json:"joined_at" db:"joined_at"`
}
