package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ftpong/arena-server/middleware"
	"github.com/ftpong/arena-server/services"
	"github.com/ftpong/arena-server/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origin once it is deployed.
		return true
	},
}

type ReceptionWSHandler struct {
	hub              *ws.Hub
	receptionService services.ReceptionService
	jwtSecret        []byte
	logger           *slog.Logger
}

func NewReceptionWSHandler(hub *ws.Hub, rs services.ReceptionService, jwtSecret []byte, logger *slog.Logger) *ReceptionWSHandler {
	return &ReceptionWSHandler{
		hub:              hub,
		receptionService: rs,
		jwtSecret:        jwtSecret,
		logger:           logger,
	}
}

type readyMessage struct {
	IsReady bool `json:"is_ready"`
}

// ServeWS handles GET /ws/receptions/{receptionID}. Browsers cannot set
// headers on upgrade requests, so the auth JWT arrives in the "token" query
// parameter and the one-time join token in "join".
func (h *ReceptionWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	receptionID := chi.URLParam(r, "receptionID")
	if receptionID == "" {
		http.Error(w, "missing receptionID", http.StatusBadRequest)
		return
	}

	userID, ok := userIDFromQueryToken(w, r, h.jwtSecret)
	if !ok {
		return
	}
	joinToken := r.URL.Query().Get("join")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade reception connection",
			slog.String("reception_id", receptionID), slog.Any("error", err))
		return
	}
	client := ws.NewClient(conn)

	if err := h.receptionService.Connect(r.Context(), receptionID, userID, joinToken); err != nil {
		client.CloseWithReason(websocket.ClosePolicyViolation, err.Error())
		return
	}

	receptionRoom := services.ReceptionGroupName(receptionID)
	userRoom := services.UserGroupName(userID)
	h.hub.Join(receptionRoom, client)
	h.hub.Join(userRoom, client)

	// The request context dies when this handler returns; the callbacks
	// outlive it for the whole connection.
	client.OnMessage = func(data []byte) {
		var envelope ws.InboundEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			client.Send("error", "malformed message")
			return
		}
		switch envelope.Type {
		case "ready":
			var msg readyMessage
			if err := json.Unmarshal(envelope.Message, &msg); err != nil {
				client.Send("error", "malformed ready message")
				return
			}
			if err := h.receptionService.SetReady(context.Background(), receptionID, userID, msg.IsReady); err != nil {
				client.Send("error", err.Error())
			}
		default:
			client.Send("error", services.ErrUnknownMessageType.Error())
		}
	}
	client.OnClose = func() {
		h.hub.Leave(receptionRoom, client)
		h.hub.Leave(userRoom, client)
		h.receptionService.Disconnect(context.Background(), receptionID, userID)
	}

	go client.WritePump()
	go client.ReadPump()
}

// userIDFromQueryToken authenticates a websocket request before the upgrade.
func userIDFromQueryToken(w http.ResponseWriter, r *http.Request, secret []byte) (int, bool) {
	claims, err := middleware.ParseToken(r.URL.Query().Get("token"), secret)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return 0, false
	}
	userID, err := middleware.UserIDFromClaims(claims)
	if err != nil {
		http.Error(w, "invalid token claims", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}
