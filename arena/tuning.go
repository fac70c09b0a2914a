package arena

import "time"

// Default field and simulation tuning. Integer units keep the simulation
// deterministic across platforms.
const (
	DefaultWidth      = 138
	DefaultHeight     = 76
	DefaultBarLength  = 6
	DefaultBarWidth   = 1
	DefaultBarSpeed   = 1
	DefaultBallRadius = 1
	DefaultBallSpeed  = 1
	DefaultMaxScore   = 5

	DefaultTickRate      = 8 // Hz
	DefaultCountdownFrom = 3
)

// Config carries the tunable parts of an arena. Zero values fall back to the
// defaults above.
type Config struct {
	Width      int
	Height     int
	BarLength  int
	BarWidth   int
	BarSpeed   int
	BallRadius int
	BallSpeed  int
	MaxScore   int

	TickInterval      time.Duration
	CountdownInterval time.Duration
	CountdownFrom     int
}

func (c Config) withDefaults() Config {
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if c.Height == 0 {
		c.Height = DefaultHeight
	}
	if c.BarLength == 0 {
		c.BarLength = DefaultBarLength
	}
	if c.BarWidth == 0 {
		c.BarWidth = DefaultBarWidth
	}
	if c.BarSpeed == 0 {
		c.BarSpeed = DefaultBarSpeed
	}
	if c.BallRadius == 0 {
		c.BallRadius = DefaultBallRadius
	}
	if c.BallSpeed == 0 {
		c.BallSpeed = DefaultBallSpeed
	}
	if c.MaxScore == 0 {
		c.MaxScore = DefaultMaxScore
	}
	if c.TickInterval == 0 {
		c.TickInterval = time.Second / DefaultTickRate
	}
	if c.CountdownInterval == 0 {
		c.CountdownInterval = time.Second
	}
	if c.CountdownFrom == 0 {
		c.CountdownFrom = DefaultCountdownFrom
	}
	return c
}
