package models

// TournamentMatchState represents the lifecycle of one bracket slot.
type TournamentMatchState string

const (
	MatchPending  TournamentMatchState = "pending"
	MatchReady    TournamentMatchState = "ready"
	MatchFinished TournamentMatchState = "finished"
)

// TournamentMatch is a bracket slot. Matches are numbered 1-indexed in heap
// order: the final is 1, the children of match n are 2n and 2n+1, so the
// parent of match n is n/2 and n fills the LEFT slot of its parent when n is
// even, the RIGHT slot when n is odd.
type TournamentMatch struct {
	ID           int                  `json:"id" db:"id"`
	TournamentID int                  `json:"tournament_id" db:"tournament_id"`
	Round        int                  `json:"round" db:"round"`
	MatchNumber  int                  `json:"match_number" db:"match_number"`
	LeftUserID   *int                 `json:"left_user_id,omitempty" db:"left_user_id"`
	RightUserID  *int                 `json:"right_user_id,omitempty" db:"right_user_id"`
	LeftScore    int                  `json:"left_score" db:"left_score"`
	RightScore   int                  `json:"right_score" db:"right_score"`
	WinnerID     *int                 `json:"winner_id,omitempty" db:"winner_id"`
	State        TournamentMatchState `json:"state" db:"state"`
}

// ParentNumber returns the heap parent, or 0 for the final.
func (m *TournamentMatch) ParentNumber() int {
	return m.MatchNumber / 2
}

// ParentSlot is the team slot of the parent this match's winner fills.
func (m *TournamentMatch) ParentSlot() Team {
	if m.MatchNumber%2 == 0 {
		return TeamLeft
	}
	return TeamRight
}

func (m *TournamentMatch) HasUser(userID int) bool {
	if m.LeftUserID != nil && *m.LeftUserID == userID {
		return true
	}
	return m.RightUserID != nil && *m.RightUserID == userID
}
