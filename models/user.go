package models

// User is the slice of the external identity service this system cares about.
type User struct {
	ID       int    `json:"id"`
	Nickname string `json:"nickname"`
}
