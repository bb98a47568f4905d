package duel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/duel-platform/internal/auth"
	"github.com/gokatarajesh/duel-platform/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/duel-platform/pkg/http/errors"
)

func newTestMux(h *serviceHarness) *http.ServeMux {
	mux := http.NewServeMux()
	NewHTTPHandlers(h.svc, zerolog.Nop()).Register(mux)
	return mux
}

// do sends a request as userID; userID 0 sends it anonymously.
func do(t *testing.T, mux *http.ServeMux, userID int64, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != 0 {
		req = req.WithContext(auth.WithClaims(req.Context(), &jwt.Claims{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httperrors.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestHTTP_SearchLifecycle(t *testing.T) {
	h := newHarness(t)
	mux := newTestMux(h)

	rec := do(t, mux, 0, http.MethodPost, "/v1/duels/search", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, mux, 1, http.MethodPost, "/v1/duels/search", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, h.pool.IsUserWaiting(1))

	rec = do(t, mux, 1, http.MethodDelete, "/v1/duels/search", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, h.pool.IsUserWaiting(1))
}

func TestHTTP_Invitations(t *testing.T) {
	h := newHarness(t)
	mux := newTestMux(h)

	rec := do(t, mux, 1, http.MethodPost, "/v1/duels/invitations", InvitationRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httperrors.ErrCodeMissingField, errorCode(t, rec))

	rec = do(t, mux, 1, http.MethodPost, "/v1/duels/invitations", InvitationRequest{Nickname: "nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, 1, http.MethodPost, "/v1/duels/invitations", InvitationRequest{Nickname: "bob"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, 2, http.MethodGet, "/v1/duels/invitations/incoming", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var incoming struct {
		Invitations []PendingDuel `json:"invitations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&incoming))
	require.Len(t, incoming.Invitations, 1)
	assert.Equal(t, int64(1), incoming.Invitations[0].UserID)

	rec = do(t, mux, 3, http.MethodGet, "/v1/duels/invitations/incoming", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"invitations":[]}`, rec.Body.String())
}

func TestHTTP_DuelEndpoints(t *testing.T) {
	h := newHarness(t)
	mux := newTestMux(h)

	rec := do(t, mux, 1, http.MethodGet, "/v1/duels/active", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	d := h.startDuel(t, 1, 2)
	path := fmt.Sprintf("/v1/duels/%d", d.ID)

	rec = do(t, mux, 2, http.MethodGet, "/v1/duels/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view DuelView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, d.ID, view.ID)
	assert.Equal(t, int64(1), view.OpponentID)

	rec = do(t, mux, 3, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, mux, 1, http.MethodGet, "/v1/duels/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httperrors.ErrCodeInvalidDuelID, errorCode(t, rec))

	// a participant cannot close the duel before it is decided
	rec = do(t, mux, 2, http.MethodPost, path+"/finish", map[string]int64{"winner_id": 2})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeDuelNotFinishable, errorCode(t, rec))

	h.store.addSubmission(accepted(d.ID, 1, t0.Add(2*time.Minute)))
	rec = do(t, mux, 2, http.MethodPost, path+"/finish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, StatusFinished, view.Status)
	require.NotNil(t, view.Result)
	assert.Equal(t, ResultLose, *view.Result)

	rec = do(t, mux, 1, http.MethodPost, path+"/finish", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeDuelFinished, errorCode(t, rec))
}

func TestHTTP_ActiveDuelConflict(t *testing.T) {
	h := newHarness(t)
	mux := newTestMux(h)
	h.startDuel(t, 1, 2)

	rec := do(t, mux, 1, http.MethodPost, "/v1/duels/search", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeActiveDuel, errorCode(t, rec))
}

func TestHTTP_DuelHistory(t *testing.T) {
	h := newHarness(t)
	mux := newTestMux(h)

	d := h.startDuel(t, 1, 2)
	h.store.addSubmission(accepted(d.ID, 2, t0.Add(time.Minute)))
	rec := do(t, mux, 1, http.MethodPost, fmt.Sprintf("/v1/duels/%d/finish", d.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, 1, http.MethodGet, "/v1/duels/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Duels []DuelView `json:"duels"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history.Duels, 1)
	assert.Equal(t, d.ID, history.Duels[0].ID)
	require.NotNil(t, history.Duels[0].Result)
	assert.Equal(t, ResultLose, *history.Duels[0].Result)

	rec = do(t, mux, 3, http.MethodGet, "/v1/users/2/duels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries struct {
		Duels []DuelSummary `json:"duels"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summaries))
	require.Len(t, summaries.Duels, 1)
	assert.Equal(t, "alice", summaries.Duels[0].OpponentNickname)
	require.NotNil(t, summaries.Duels[0].WinnerNickname)
	assert.Equal(t, "bob", *summaries.Duels[0].WinnerNickname)
	assert.Positive(t, summaries.Duels[0].RatingDelta)

	rec = do(t, mux, 1, http.MethodGet, "/v1/users/77/duels", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, mux, 1, http.MethodGet, "/v1/users/x/duels", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httperrors.ErrCodeInvalidUserID, errorCode(t, rec))

	rec = do(t, mux, 0, http.MethodGet, "/v1/duels/history", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
