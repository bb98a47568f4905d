package duel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/auth"
	httperrors "github.com/gokatarajesh/duel-platform/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for searches, invitations and duels.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for duel endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "duel_http").Logger(),
	}
}

// Register mounts the duel routes on mux.
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/duels/search", h.StartSearch)
	mux.HandleFunc("DELETE /v1/duels/search", h.CancelSearch)
	mux.HandleFunc("POST /v1/duels/invitations", h.CreateInvitation)
	mux.HandleFunc("DELETE /v1/duels/invitations", h.CancelInvitation)
	mux.HandleFunc("POST /v1/duels/invitations/accept", h.AcceptInvitation)
	mux.HandleFunc("POST /v1/duels/invitations/deny", h.DenyInvitation)
	mux.HandleFunc("GET /v1/duels/invitations/incoming", h.IncomingInvitations)
	mux.HandleFunc("GET /v1/duels/active", h.ActiveDuel)
	mux.HandleFunc("GET /v1/duels/history", h.DuelHistory)
	mux.HandleFunc("GET /v1/users/{id}/duels", h.UserDuels)
	mux.HandleFunc("GET /v1/duels/{id}", h.GetDuel)
	mux.HandleFunc("POST /v1/duels/{id}/finish", h.FinishDuel)
}

// InvitationRequest is the body of every invitation endpoint.
type InvitationRequest struct {
	Nickname        string `json:"nickname"`
	ConfigurationID *int64 `json:"configuration_id,omitempty"`
}

// StartSearch handles POST /v1/duels/search
func (h *HTTPHandlers) StartSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.service.StartSearch(r.Context(), userID); err != nil {
		h.respondServiceError(w, err, userID, "start search")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelSearch handles DELETE /v1/duels/search
func (h *HTTPHandlers) CancelSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.service.CancelSearch(r.Context(), userID); err != nil {
		h.respondServiceError(w, err, userID, "cancel search")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateInvitation handles POST /v1/duels/invitations
func (h *HTTPHandlers) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	h.invitation(w, r, "create invitation", h.service.CreateInvitation)
}

// AcceptInvitation handles POST /v1/duels/invitations/accept
func (h *HTTPHandlers) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	h.invitation(w, r, "accept invitation", h.service.AcceptInvitation)
}

// DenyInvitation handles POST /v1/duels/invitations/deny
func (h *HTTPHandlers) DenyInvitation(w http.ResponseWriter, r *http.Request) {
	h.invitation(w, r, "deny invitation", h.service.DenyInvitation)
}

// CancelInvitation handles DELETE /v1/duels/invitations
func (h *HTTPHandlers) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	h.invitation(w, r, "cancel invitation", h.service.CancelInvitation)
}

// IncomingInvitations handles GET /v1/duels/invitations/incoming
func (h *HTTPHandlers) IncomingInvitations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	invitations, err := h.service.IncomingInvitations(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, userID, "list invitations")
		return
	}
	if invitations == nil {
		invitations = []PendingDuel{}
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"invitations": invitations})
}

// ActiveDuel handles GET /v1/duels/active
func (h *HTTPHandlers) ActiveDuel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetActiveDuel(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, userID, "get active duel")
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// GetDuel handles GET /v1/duels/{id}
func (h *HTTPHandlers) GetDuel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	duelID, ok := h.duelID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetDuel(r.Context(), userID, duelID)
	if err != nil {
		h.respondServiceError(w, err, userID, "get duel")
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// FinishDuel handles POST /v1/duels/{id}/finish
func (h *HTTPHandlers) FinishDuel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	duelID, ok := h.duelID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.FinishDuel(r.Context(), userID, duelID); err != nil {
		h.respondServiceError(w, err, userID, "finish duel")
		return
	}
	view, err := h.service.GetDuel(r.Context(), userID, duelID)
	if err != nil {
		h.respondServiceError(w, err, userID, "get duel")
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// DuelHistory handles GET /v1/duels/history
func (h *HTTPHandlers) DuelHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	history, err := h.service.DuelHistory(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, userID, "duel history")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"duels": history})
}

// UserDuels handles GET /v1/users/{id}/duels
func (h *HTTPHandlers) UserDuels(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || userID <= 0 {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidUserID, "Invalid user id")
		return
	}
	duels, err := h.service.UserDuels(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, callerID, "list user duels")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"duels": duels})
}

func (h *HTTPHandlers) invitation(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	call func(ctx context.Context, userID int64, nickname string, configurationID *int64) error,
) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req InvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Nickname == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "nickname is required", "nickname")
		return
	}

	if err := call(r.Context(), userID, req.Nickname, req.ConfigurationID); err != nil {
		h.respondServiceError(w, err, userID, action)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) caller(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return 0, false
	}
	return claims.UserID, true
}

func (h *HTTPHandlers) duelID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidDuelID, "Invalid duel id")
		return 0, false
	}
	return id, true
}

// respondServiceError maps service errors onto HTTP status codes.
func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, err error, userID int64, action string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, err.Error())
	case errors.Is(err, ErrAlreadyFinished):
		httperrors.RespondConflict(w, httperrors.ErrCodeDuelFinished, err.Error())
	case errors.Is(err, ErrNotFinishable):
		httperrors.RespondConflict(w, httperrors.ErrCodeDuelNotFinishable, err.Error())
	case errors.Is(err, ErrActiveDuel):
		httperrors.RespondConflict(w, httperrors.ErrCodeActiveDuel, err.Error())
	case errors.Is(err, ErrConflict):
		httperrors.RespondConflict(w, httperrors.ErrCodeConflict, err.Error())
	case errors.Is(err, ErrTaskSelectionFailed):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeTaskSelectionFailed, "Could not select tasks")
	default:
		h.logger.Error().Err(err).Int64("user_id", userID).Str("action", action).Msg("request failed")
		httperrors.RespondInternalError(w, "Internal error")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
