package arena

import "github.com/ftpong/arena-server/models"

// Outbound event discriminators. Every message the arena publishes carries one
// of these in its "type" field.
const (
	EventTeam      = "team"
	EventWaiting   = "waiting"
	EventStart     = "start"
	EventCountdown = "countdown"
	EventState     = "state"
	EventRoundOver = "round.over"
	EventExit      = "exit"
	EventEnd       = "arena.end"
)

// Messenger fans an event out to every connection watching this arena. The
// connection layer implements it; the arena never touches the transport.
type Messenger interface {
	Publish(eventType string, payload any)
}

// StateSnapshot is broadcast every simulation tick.
type StateSnapshot struct {
	Ball struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"ball"`
	Bars map[models.Team]int `json:"bars"`
}

// Scoreboard is broadcast when a round ends.
type Scoreboard struct {
	Left  int `json:"left"`
	Right int `json:"right"`
	Round int `json:"round"`
}

// Result is the final outcome of an arena, handed to the result-reporting
// callback exactly once.
type Result struct {
	ArenaID     string      `json:"arena_id"`
	LeftUserID  int         `json:"left_user_id"`
	RightUserID int         `json:"right_user_id"`
	LeftScore   int         `json:"left_score"`
	RightScore  int         `json:"right_score"`
	Winner      models.Team `json:"winner"`
	WinnerID    int         `json:"winner_id"`
	Forfeited   bool        `json:"forfeited"`
}
