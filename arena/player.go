package arena

import "github.com/ftpong/arena-server/models"

// Player is a participant holding one side of an arena. Once the match has
// started the seat identity is fixed; a disconnect only drops Connected so the
// final result can still name both sides.
type Player struct {
	UserID    int
	Name      string
	Team      models.Team
	Connected bool
}
