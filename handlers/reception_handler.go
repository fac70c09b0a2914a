package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ftpong/arena-server/middleware"
	"github.com/ftpong/arena-server/services"
)

type ReceptionHandler struct {
	receptionService services.ReceptionService
}

func NewReceptionHandler(rs services.ReceptionService) *ReceptionHandler {
	return &ReceptionHandler{receptionService: rs}
}

// CreateHandler handles POST /receptions
func (h *ReceptionHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create reception")
		return
	}

	var input struct {
		Name       string `json:"name"`
		MaxPlayers int    `json:"max_players"`
		Password   string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reception, err := h.receptionService.Create(r.Context(), services.CreateReceptionInput{
		Name:       input.Name,
		OwnerID:    currentUserID,
		MaxPlayers: input.MaxPlayers,
		Password:   input.Password,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"reception": reception}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /receptions
func (h *ReceptionHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	receptions, err := h.receptionService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"receptions": receptions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /receptions/{receptionID}
func (h *ReceptionHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	receptionID := chi.URLParam(r, "receptionID")

	reception, err := h.receptionService.Get(r.Context(), receptionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"reception":    reception,
		"participants": h.receptionService.Participants(receptionID),
		"playing":      h.receptionService.IsPlaying(receptionID),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// JoinHandler handles POST /receptions/{receptionID}/join. On success it
// returns a one-time token the client presents on the websocket connect.
func (h *ReceptionHandler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to join reception")
		return
	}
	receptionID := chi.URLParam(r, "receptionID")

	var input struct {
		Password string `json:"password"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	token, err := h.receptionService.Join(r.Context(), receptionID, currentUserID, input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"token": token,
		"url":   fmt.Sprintf("/ws/receptions/%s", receptionID),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// InviteHandler handles POST /receptions/{receptionID}/invite
func (h *ReceptionHandler) InviteHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to invite")
		return
	}
	receptionID := chi.URLParam(r, "receptionID")

	var input struct {
		UserID int `json:"user_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		badRequestResponse(w, r, fmt.Errorf("user_id must be positive"))
		return
	}

	if err := h.receptionService.Invite(r.Context(), receptionID, currentUserID, input.UserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invited": input.UserID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
