package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lv-perps/internal/types"
)

func newTestRouter(t *testing.T) (*chi.Mux, *Manager) {
	t.Helper()
	m, _, _, _ := newTestManager(t)
	h := NewHandler(m)
	r := chi.NewRouter()
	r.Get("/positions", h.List)
	r.Get("/positions/history", h.History)
	r.Post("/positions/open", h.Open)
	r.Post("/positions/{id}/close", h.Close)
	return r, m
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestOpenEndpoint(t *testing.T) {
	r, m := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/positions/open",
		`{"player_id":1,"symbol":"meme","direction":"long","amount":"100","leverage":5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var pos Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pos))
	assert.Equal(t, "MEME", pos.Symbol)
	assert.Equal(t, types.DirectionLong, pos.Direction)
	assert.Equal(t, "99.8", pos.Collateral.String())

	require.Len(t, m.OpenPositions(1), 1)
}

func TestOpenEndpointValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing player", `{"symbol":"MEME","direction":"LONG","amount":"10","leverage":5}`, http.StatusBadRequest},
		{"bad direction", `{"player_id":1,"symbol":"MEME","direction":"UP","amount":"10","leverage":5}`, http.StatusBadRequest},
		{"negative amount", `{"player_id":1,"symbol":"MEME","direction":"LONG","amount":"-10","leverage":5}`, http.StatusBadRequest},
		{"missing symbol", `{"player_id":1,"direction":"LONG","amount":"10","leverage":5}`, http.StatusBadRequest},
		{"over max leverage", `{"player_id":1,"symbol":"MEME","direction":"LONG","amount":"10","leverage":101}`, http.StatusBadRequest},
		{"unknown symbol", `{"player_id":1,"symbol":"NOPE","direction":"LONG","amount":"10","leverage":5}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/positions/open", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestDuplicateOpenReturnsConflict(t *testing.T) {
	r, _ := newTestRouter(t)

	body := `{"player_id":1,"symbol":"MEME","direction":"LONG","amount":"50","leverage":5}`
	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/positions/open", body).Code)
	assert.Equal(t, http.StatusConflict, doJSON(t, r, http.MethodPost, "/positions/open", body).Code)
}

func TestCloseEndpoint(t *testing.T) {
	r, m := newTestRouter(t)

	pos := mustOpen(t, m, 1, "MEME", types.DirectionLong, "100", 5)

	rec := doJSON(t, r, http.MethodPost, "/positions/"+pos.ID+"/close", `{"player_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var closed ClosedPosition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &closed))
	assert.Equal(t, "99.6004", closed.Payout.String())

	rec = doJSON(t, r, http.MethodPost, "/positions/"+pos.ID+"/close", `{"player_id":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndHistoryEndpoints(t *testing.T) {
	r, m := newTestRouter(t)

	pos := mustOpen(t, m, 1, "MEME", types.DirectionLong, "100", 5)

	rec := doJSON(t, r, http.MethodGet, "/positions?player_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var open []Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &open))
	require.Len(t, open, 1)

	_, err := m.Close(context.Background(), 1, pos.ID)
	require.NoError(t, err)

	rec = doJSON(t, r, http.MethodGet, "/positions/history?player_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []ClosedPosition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, types.PositionStatusClosed, history[0].Status)

	rec = doJSON(t, r, http.MethodGet, "/positions", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
