package arena

import "github.com/ftpong/arena-server/models"

// Bar is one side's paddle. X is fixed by the team, Y is the top edge and is
// always kept within [0, fieldHeight - Length].
type Bar struct {
	Team   models.Team
	X      int
	Y      int
	Length int
	Width  int
	Speed  int

	fieldWidth  int
	fieldHeight int
}

func NewBar(team models.Team, cfg Config) *Bar {
	b := &Bar{
		Team:        team,
		Length:      cfg.BarLength,
		Width:       cfg.BarWidth,
		Speed:       cfg.BarSpeed,
		fieldWidth:  cfg.Width,
		fieldHeight: cfg.Height,
	}
	b.Reset()
	return b
}

func (b *Bar) Move(direction models.Direction) {
	switch direction {
	case models.DirectionUp:
		b.Y = max(b.Y-b.Speed, 0)
	case models.DirectionDown:
		b.Y = min(b.Y+b.Speed, b.fieldHeight-b.Length)
	}
}

// Reset recenters the bar vertically and pins it to its side of the field.
func (b *Bar) Reset() {
	b.Y = (b.fieldHeight - b.Length) / 2
	if b.Team == models.TeamLeft {
		b.X = 0
	} else {
		b.X = b.fieldWidth - b.Width
	}
}
