package marketdata

import (
	"net/http"
	"strings"

	"lv-perps/internal/httputil"
	"lv-perps/internal/pricesim"
)

// Handler serves point-in-time price reads. Live updates go over the
// websocket; this is for bootstrapping charts and polling fallbacks.
type Handler struct {
	bus     *Bus
	history *pricesim.History
}

func NewHandler(bus *Bus, history *pricesim.History) *Handler {
	return &Handler{bus: bus, history: history}
}

// Prices returns the latest snapshot of every active symbol.
func (h *Handler) Prices(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.bus.Last()
	if !ok {
		snap = PriceSnapshot{Prices: map[string]float64{}}
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// History returns the recent series for one symbol.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol is required"})
		return
	}
	points := h.history.Tail(symbol)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"points": points,
	})
}
