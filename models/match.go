package models

import "time"

// Match is the persisted record of a finished normal (non-tournament) game.
type Match struct {
	ID          int       `json:"id" db:"id"`
	ReceptionID string    `json:"reception_id" db:"reception_id"`
	LeftUserID  int       `json:"left_user_id" db:"left_user_id"`
	RightUserID int       `json:"right_user_id" db:"right_user_id"`
	LeftScore   int       `json:"left_score" db:"left_score"`
	RightScore  int       `json:"right_score" db:"right_score"`
	WinnerID    int       `json:"winner_id" db:"winner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
