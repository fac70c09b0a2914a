package arena

import (
	"testing"

	"github.com/ftpong/arena-server/models"
	"github.com/stretchr/testify/assert"
)

func TestBallResetAlternatesServeDirection(t *testing.T) {
	cfg := testConfig()
	ball := NewBall(cfg)

	for round := 1; round <= 8; round++ {
		ball.Reset(round)
		assert.Equal(t, cfg.Width/2, ball.X)
		assert.Equal(t, cfg.Height/2, ball.Y)
		if round%2 == 1 {
			assert.Equal(t, cfg.BallSpeed, ball.VX, "round %d", round)
			assert.Equal(t, cfg.BallSpeed, ball.VY, "round %d", round)
		} else {
			assert.Equal(t, -cfg.BallSpeed, ball.VX, "round %d", round)
			assert.Equal(t, -cfg.BallSpeed, ball.VY, "round %d", round)
		}
	}
}

func TestBallBouncesOffWalls(t *testing.T) {
	cfg := testConfig()
	left := NewBar(models.TeamLeft, cfg)
	right := NewBar(models.TeamRight, cfg)

	ball := NewBall(cfg)
	ball.X, ball.Y = cfg.Width/2, ball.Radius
	ball.VX, ball.VY = 1, -1
	ball.HandleCollision(left, right)
	assert.Equal(t, 1, ball.VY, "top wall should flip VY")

	ball.Y = cfg.Height - ball.Radius
	ball.VY = 1
	ball.HandleCollision(left, right)
	assert.Equal(t, -1, ball.VY, "bottom wall should flip VY")
}

func TestBallBouncesOffBars(t *testing.T) {
	cfg := testConfig()
	left := NewBar(models.TeamLeft, cfg)
	right := NewBar(models.TeamRight, cfg)

	tests := []struct {
		name   string
		x, y   int
		vx     int
		wantVX int
	}{
		{"left bar front face", left.X + left.Width + 1, left.Y + 2, -1, 1},
		{"left bar with radius overlap", left.X + left.Width, left.Y, -1, 1},
		{"right bar front face", right.X - 1, right.Y + 2, 1, -1},
		{"right bar with radius overlap", right.X, right.Y + right.Length, 1, -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ball := NewBall(cfg)
			ball.X, ball.Y = tc.x, tc.y
			ball.VX, ball.VY = tc.vx, 0
			ball.HandleCollision(left, right)
			assert.Equal(t, tc.wantVX, ball.VX)
		})
	}
}

func TestBallMovingAwayIsNotFlipped(t *testing.T) {
	cfg := testConfig()
	left := NewBar(models.TeamLeft, cfg)
	right := NewBar(models.TeamRight, cfg)

	// Overlapping the left bar but already heading back into the field.
	ball := NewBall(cfg)
	ball.X, ball.Y = left.X+left.Width, left.Y+1
	ball.VX, ball.VY = 1, 0
	ball.HandleCollision(left, right)
	assert.Equal(t, 1, ball.VX)
}

func TestBallBoundaryCollision(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name     string
		x        int
		wantTeam models.Team
		wantHit  bool
	}{
		{"left wall", cfg.BallRadius, models.TeamLeft, true},
		{"right wall", cfg.Width - cfg.BallRadius, models.TeamRight, true},
		{"mid field", cfg.Width / 2, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ball := NewBall(cfg)
			ball.X = tc.x
			team, hit := ball.CheckBoundaryCollision()
			assert.Equal(t, tc.wantHit, hit)
			if tc.wantHit {
				assert.Equal(t, tc.wantTeam, team)
			}
		})
	}
}
