// Package players exposes the account surface: lifecycle, balances and
// trade statistics.
package players

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"lv-perps/internal/engine"
	"lv-perps/internal/httputil"
	"lv-perps/internal/persist"
)

// StatsSource aggregates settled trades from durable storage.
type StatsSource interface {
	PlayerStats(ctx context.Context, playerID int64) (persist.PlayerStats, error)
}

type Handler struct {
	manager *engine.Manager
	stats   StatsSource
}

func NewHandler(manager *engine.Manager, stats StatsSource) *Handler {
	return &Handler{manager: manager, stats: stats}
}

type stateResponse struct {
	Player     engine.Player   `json:"player"`
	Equity     decimal.Decimal `json:"equity"`
	PnLPercent decimal.Decimal `json:"pnl_percent"`
}

// State returns the account, creating it with the starting grant on first
// contact. PnL percent is measured against the starting grant.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	playerID, ok := idParam(w, r)
	if !ok {
		return
	}
	if _, err := h.manager.EnsurePlayer(r.Context(), playerID); err != nil {
		log.Printf("[players] ensure %d: %v", playerID, err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	player, equity, _ := h.manager.PlayerState(playerID)
	pnlPct := decimal.Zero
	if start := h.manager.StartingCash(); start.GreaterThan(decimal.Zero) {
		pnlPct = equity.Sub(start).Div(start).Mul(decimal.NewFromInt(100))
	}
	httputil.WriteJSON(w, http.StatusOK, stateResponse{Player: player, Equity: equity, PnLPercent: pnlPct})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	playerID, ok := idParam(w, r)
	if !ok {
		return
	}
	stats, err := h.stats.PlayerStats(r.Context(), playerID)
	if err != nil {
		log.Printf("[players] stats %d: %v", playerID, err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid player id"})
		return 0, false
	}
	return id, true
}
