package models

import "time"

// Reception is the persisted record of a pre-match waiting room. The live
// participant/ready state lives in the reception service, not here.
type Reception struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	OwnerID      int       `json:"owner_id" db:"owner_id"`
	MaxPlayers   int       `json:"max_players" db:"max_players"`
	PasswordHash *string   `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (r *Reception) IsProtected() bool {
	return r.PasswordHash != nil && *r.PasswordHash != ""
}

// ReceptionParticipant is a roster entry broadcast to reception members.
type ReceptionParticipant struct {
	UserID  int    `json:"user_id"`
	Name    string `json:"name"`
	IsReady bool   `json:"is_ready"`
}
