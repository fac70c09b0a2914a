package services

import (
	"context"
	"fmt"
)

// Broadcaster fans an event out to a named group of connections. The ws hub
// implements it; services never talk to sockets directly.
type Broadcaster interface {
	BroadcastToRoom(roomID string, eventType string, message any)
}

// Notifier delivers an event to a single user, best effort. Delivery failure
// must never roll back state the caller already committed.
type Notifier interface {
	Notify(ctx context.Context, userID int, eventType string, message any) bool
}

// UserGateway looks up display data in the external identity service.
type UserGateway interface {
	GetDisplayName(ctx context.Context, userID int, credential string) (string, error)
}

// Group name helpers. Room ids are shared between services and the websocket
// handlers, so the scheme lives in one place.

func ReceptionGroupName(receptionID string) string {
	return "reception_" + receptionID
}

func ArenaGroupName(arenaID string) string {
	return "arena_" + arenaID
}

func UserGroupName(userID int) string {
	return fmt.Sprintf("user_%d", userID)
}

// TournamentArenaID derives the arena id for one bracket match.
func TournamentArenaID(tournamentID, matchNumber int) string {
	return fmt.Sprintf("t%d_m%d", tournamentID, matchNumber)
}

type hubNotifier struct {
	broadcaster Broadcaster
}

// NewHubNotifier delivers notifications over the user's personal websocket
// room.
func NewHubNotifier(b Broadcaster) Notifier {
	return &hubNotifier{broadcaster: b}
}

func (n *hubNotifier) Notify(_ context.Context, userID int, eventType string, message any) bool {
	n.broadcaster.BroadcastToRoom(UserGroupName(userID), eventType, message)
	return true
}
