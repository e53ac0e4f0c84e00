package engine

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"lv-perps/internal/httputil"
	"lv-perps/internal/types"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

type openPositionRequest struct {
	PlayerID  int64  `json:"player_id"`
	Symbol    string `json:"symbol"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Leverage  int    `json:"leverage"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req openPositionRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	if req.PlayerID <= 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "player_id is required"})
		return
	}
	dir := types.Direction(strings.ToUpper(strings.TrimSpace(req.Direction)))
	if !dir.Valid() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "direction must be LONG or SHORT"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "amount must be a positive number"})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol is required"})
		return
	}

	pos, err := h.manager.Open(r.Context(), req.PlayerID, symbol, dir, amount, req.Leverage)
	if err != nil {
		writeTradeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, pos)
}

type closePositionRequest struct {
	PlayerID int64 `json:"player_id"`
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	positionID := chi.URLParam(r, "id")
	var req closePositionRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	if req.PlayerID <= 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "player_id is required"})
		return
	}

	closed, err := h.manager.Close(r.Context(), req.PlayerID, positionID)
	if err != nil {
		writeTradeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, closed)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerIDParam(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.manager.OpenPositions(playerID))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerIDParam(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.manager.ClosedPositions(playerID))
}

func playerIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("player_id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "player_id is required"})
		return 0, false
	}
	return id, true
}

func writeTradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPositionNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrDuplicatePosition), errors.Is(err, ErrAlreadyLiquidated):
		httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrCollateralLimit),
		errors.Is(err, ErrInstrumentInactive), errors.Is(err, ErrInvalidLeverage):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("[engine] trade error: %v", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
	}
}
