package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ftpong/arena-server/arena"
	"github.com/ftpong/arena-server/models"
	"github.com/ftpong/arena-server/services"
	"github.com/ftpong/arena-server/ws"
)

type ArenaWSHandler struct {
	hub               *ws.Hub
	manager           *arena.Manager
	arenaConfig       arena.Config
	arenaAllow        *services.AllowList
	receptionService  services.ReceptionService
	matchService      services.MatchService
	tournamentService services.TournamentService
	users             services.UserGateway
	jwtSecret         []byte
	logger            *slog.Logger
}

func NewArenaWSHandler(
	hub *ws.Hub,
	manager *arena.Manager,
	arenaConfig arena.Config,
	arenaAllow *services.AllowList,
	rs services.ReceptionService,
	ms services.MatchService,
	ts services.TournamentService,
	users services.UserGateway,
	jwtSecret []byte,
	logger *slog.Logger,
) *ArenaWSHandler {
	return &ArenaWSHandler{
		hub:               hub,
		manager:           manager,
		arenaConfig:       arenaConfig,
		arenaAllow:        arenaAllow,
		receptionService:  rs,
		matchService:      ms,
		tournamentService: ts,
		users:             users,
		jwtSecret:         jwtSecret,
		logger:            logger,
	}
}

// hubMessenger adapts one hub room to the arena's outbound interface.
type hubMessenger struct {
	hub  *ws.Hub
	room string
}

func (m hubMessenger) Publish(eventType string, payload any) {
	m.hub.BroadcastToRoom(m.room, eventType, payload)
}

type moveMessage struct {
	Direction string `json:"direction"`
}

// ServeReceptionArena handles GET /ws/arenas/{arenaID}: the match a
// reception's ready quorum started. Only users the reception admitted may
// connect; sides are assigned first come, first served.
func (h *ArenaWSHandler) ServeReceptionArena(w http.ResponseWriter, r *http.Request) {
	arenaID := chi.URLParam(r, "arenaID")
	if arenaID == "" {
		http.Error(w, "missing arenaID", http.StatusBadRequest)
		return
	}
	userID, ok := userIDFromQueryToken(w, r, h.jwtSecret)
	if !ok {
		return
	}
	if !h.arenaAllow.IsAllowed(arenaID, userID) {
		http.Error(w, "not admitted to this arena", http.StatusForbidden)
		return
	}

	a, _ := h.manager.GetOrCreate(arenaID, func(id string) *arena.Arena {
		messenger := hubMessenger{hub: h.hub, room: services.ArenaGroupName(id)}
		return arena.New(id, h.arenaConfig, messenger, h.onReceptionMatchEnd(id))
	})

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade arena connection",
			slog.String("arena_id", arenaID), slog.Any("error", err))
		return
	}
	client := ws.NewClient(conn)

	name := h.displayName(r.Context(), userID)
	_, err = a.AddPlayerAutoAssign(userID, name)
	if err != nil {
		client.CloseWithReason(websocket.ClosePolicyViolation, err.Error())
		return
	}

	h.attach(client, a, arenaID, userID, name)
}

// onReceptionMatchEnd builds the end callback for a reception match: persist
// the result, reopen the reception and drop the arena. The arena id doubles
// as the reception id for this kind of match.
func (h *ArenaWSHandler) onReceptionMatchEnd(arenaID string) func(arena.Result) {
	return func(result arena.Result) {
		ctx := context.Background()
		if _, err := h.matchService.RecordResult(ctx, result); err != nil {
			h.logger.Error("failed to record match result",
				slog.String("arena_id", arenaID), slog.Any("error", err))
		}
		h.receptionService.ResetAfterMatch(ctx, arenaID)
		h.manager.Remove(arenaID)
	}
}

// ServeTournamentArena handles GET /ws/tournaments/{tournamentID}/matches/{matchNumber}.
// Seats are fixed by the bracket, so only the two scheduled players may
// connect, each to their own side.
func (h *ArenaWSHandler) ServeTournamentArena(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchNumber, err := getIDFromURL(r, "matchNumber")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := userIDFromQueryToken(w, r, h.jwtSecret)
	if !ok {
		return
	}

	ctx := r.Context()
	finished, err := h.tournamentService.IsMatchFinished(ctx, tournamentID, matchNumber)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if finished {
		conflictResponse(w, r, services.ErrMatchAlreadyFinished.Error())
		return
	}
	team, err := h.tournamentService.UserTeam(ctx, tournamentID, matchNumber, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	arenaID := services.TournamentArenaID(tournamentID, matchNumber)
	a, _ := h.manager.GetOrCreate(arenaID, func(id string) *arena.Arena {
		messenger := hubMessenger{hub: h.hub, room: services.ArenaGroupName(id)}
		return arena.New(id, h.arenaConfig, messenger, h.onTournamentMatchEnd(tournamentID, matchNumber, id))
	})

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade tournament arena connection",
			slog.String("arena_id", arenaID), slog.Any("error", err))
		return
	}
	client := ws.NewClient(conn)

	name := h.displayName(ctx, userID)
	if err := a.AddPlayer(userID, name, team); err != nil {
		client.CloseWithReason(websocket.ClosePolicyViolation, err.Error())
		return
	}

	h.attach(client, a, arenaID, userID, name)
}

func (h *ArenaWSHandler) onTournamentMatchEnd(tournamentID, matchNumber int, arenaID string) func(arena.Result) {
	return func(result arena.Result) {
		ctx := context.Background()
		if err := h.tournamentService.HandleMatchEnd(ctx, tournamentID, matchNumber, result); err != nil {
			h.logger.Error("failed to advance tournament bracket",
				slog.Int("tournament_id", tournamentID),
				slog.Int("match_number", matchNumber),
				slog.Any("error", err))
		}
		h.manager.Remove(arenaID)
	}
}

// attach wires a seated client to the arena: room membership, the team
// announcement, input dispatch and the disconnect-forfeits rule.
func (h *ArenaWSHandler) attach(client *ws.Client, a *arena.Arena, arenaID string, userID int, name string) {
	arenaRoom := services.ArenaGroupName(arenaID)
	userRoom := services.UserGroupName(userID)
	h.hub.Join(arenaRoom, client)
	h.hub.Join(userRoom, client)

	team, _ := a.TeamOf(userID)
	client.Send(arena.EventTeam, team)

	client.OnMessage = func(data []byte) {
		var envelope ws.InboundEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			client.Send("error", "malformed message")
			return
		}
		switch envelope.Type {
		case "move":
			var msg moveMessage
			if err := json.Unmarshal(envelope.Message, &msg); err != nil {
				client.Send("error", "malformed move message")
				return
			}
			direction := models.Direction(msg.Direction)
			if !direction.Valid() {
				client.Send("error", services.ErrInvalidDirection.Error())
				return
			}
			a.Move(userID, direction)
		default:
			client.Send("error", services.ErrUnknownMessageType.Error())
		}
	}
	client.OnClose = func() {
		h.hub.Leave(arenaRoom, client)
		h.hub.Leave(userRoom, client)
		if a.IsStarted() && !a.IsFinished() {
			// Leaving a live match concedes it.
			a.PublishExit(name)
			a.Forfeit(userID)
		} else {
			a.RemovePlayer(userID)
		}
	}

	go client.WritePump()
	go client.ReadPump()
}

func (h *ArenaWSHandler) displayName(ctx context.Context, userID int) string {
	name, err := h.users.GetDisplayName(ctx, userID, "")
	if err != nil {
		return services.FallbackName(userID)
	}
	return name
}
