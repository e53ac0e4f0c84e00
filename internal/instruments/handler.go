package instruments

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"lv-perps/internal/httputil"
)

type Handler struct {
	store    *Store
	registry *Registry
	// notify runs after a successful registry reload so dependents can
	// resubscribe, e.g. the external price feed
	notify func()
}

func NewHandler(store *Store, registry *Registry, notify func()) *Handler {
	return &Handler{store: store, registry: registry, notify: notify}
}

// List is public: the trading UI needs the instrument set to render markets.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list := h.registry.Active()
	httputil.WriteJSON(w, http.StatusOK, list)
}

type createInstrumentRequest struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	InitialPrice float64 `json:"initial_price"`
	MaxLeverage  int     `json:"max_leverage"`
	External     bool    `json:"is_external"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInstrumentRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Name = strings.TrimSpace(req.Name)
	if req.Symbol == "" || req.Name == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol and name are required"})
		return
	}
	if !req.External && req.InitialPrice <= 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "initial_price must be positive"})
		return
	}
	if req.MaxLeverage < 1 || req.MaxLeverage > 100 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "max_leverage must be between 1 and 100"})
		return
	}

	inst := Instrument{
		Symbol:       req.Symbol,
		Name:         req.Name,
		CurrentPrice: req.InitialPrice,
		MaxLeverage:  req.MaxLeverage,
		External:     req.External,
		Active:       true,
	}
	if err := h.store.Create(r.Context(), inst); err != nil {
		log.Printf("[instruments] create %s: %v", req.Symbol, err)
		httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: "instrument already exists"})
		return
	}
	h.reload(r)
	httputil.WriteJSON(w, http.StatusCreated, inst)
}

type updateInstrumentRequest struct {
	Name        string `json:"name"`
	Active      bool   `json:"is_active"`
	MaxLeverage int    `json:"max_leverage"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	var req updateInstrumentRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request"})
		return
	}
	if req.Name == "" || req.MaxLeverage < 1 || req.MaxLeverage > 100 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "name and max_leverage between 1 and 100 are required"})
		return
	}
	if err := h.store.Update(r.Context(), symbol, req.Name, req.Active, req.MaxLeverage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "instrument not found"})
			return
		}
		log.Printf("[instruments] update %s: %v", symbol, err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "update failed"})
		return
	}
	h.reload(r)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	if err := h.store.Delete(r.Context(), symbol); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "instrument not found"})
		case errors.Is(err, ErrHasPositions):
			httputil.WriteJSON(w, http.StatusConflict, httputil.ErrorResponse{Error: err.Error()})
		default:
			log.Printf("[instruments] delete %s: %v", symbol, err)
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "delete failed"})
		}
		return
	}
	h.reload(r)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) reload(r *http.Request) {
	if err := h.registry.Reload(r.Context()); err != nil {
		log.Printf("[instruments] registry reload: %v", err)
		return
	}
	if h.notify != nil {
		h.notify()
	}
}
