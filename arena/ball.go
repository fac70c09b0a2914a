package arena

import "github.com/ftpong/arena-server/models"

type Ball struct {
	X      int
	Y      int
	VX     int
	VY     int
	Radius int
	Speed  int

	fieldWidth  int
	fieldHeight int
}

func NewBall(cfg Config) *Ball {
	b := &Ball{
		Radius:      cfg.BallRadius,
		Speed:       cfg.BallSpeed,
		fieldWidth:  cfg.Width,
		fieldHeight: cfg.Height,
	}
	b.Reset(1)
	return b
}

func (b *Ball) UpdatePosition() {
	b.X += b.VX
	b.Y += b.VY
}

// Reset recenters the ball. The serve direction alternates with the parity of
// the round number: odd rounds serve toward the bottom right, even rounds
// toward the top left. The alternation is intentional so neither side serves
// twice in a row.
func (b *Ball) Reset(round int) {
	b.X = b.fieldWidth / 2
	b.Y = b.fieldHeight / 2
	if round%2 == 1 {
		b.VX, b.VY = b.Speed, b.Speed
	} else {
		b.VX, b.VY = -b.Speed, -b.Speed
	}
}

// HandleCollision bounces the ball off the top/bottom walls and off either
// bar. The bar test checks the ball's extent against both faces of the bar so
// a fast ball cannot tunnel through, and only flips the component moving
// toward the bar so an overlapping ball is never flipped twice.
func (b *Ball) HandleCollision(left, right *Bar) {
	if b.Y-b.Radius <= 0 && b.VY < 0 {
		b.VY = -b.VY
	}
	if b.Y+b.Radius >= b.fieldHeight && b.VY > 0 {
		b.VY = -b.VY
	}

	if b.VX < 0 &&
		b.X-b.Radius <= left.X+left.Width &&
		b.X+b.Radius >= left.X &&
		left.Y <= b.Y && b.Y <= left.Y+left.Length {
		b.VX = -b.VX
	}
	if b.VX > 0 &&
		b.X+b.Radius >= right.X &&
		b.X-b.Radius <= right.X+right.Width &&
		right.Y <= b.Y && b.Y <= right.Y+right.Length {
		b.VX = -b.VX
	}
}

// CheckBoundaryCollision reports which wall the ball crossed, if any. A
// crossing of the left wall means the right side scores and vice versa; the
// caller handles scoring.
func (b *Ball) CheckBoundaryCollision() (models.Team, bool) {
	if b.X-b.Radius <= 0 {
		return models.TeamLeft, true
	}
	if b.X+b.Radius >= b.fieldWidth {
		return models.TeamRight, true
	}
	return "", false
}
