package models

// Team identifies a side of an arena and its paddle/score slot.
type Team string

const (
	TeamLeft  Team = "left"
	TeamRight Team = "right"
)

func (t Team) Valid() bool {
	return t == TeamLeft || t == TeamRight
}

// Opponent returns the other side.
func (t Team) Opponent() Team {
	if t == TeamLeft {
		return TeamRight
	}
	return TeamLeft
}

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}
