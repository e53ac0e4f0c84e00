package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lv-perps/internal/engine"
	"lv-perps/internal/instruments"
	"lv-perps/internal/marketdata"
	"lv-perps/internal/players"
)

type RouterDeps struct {
	PositionHandler   *engine.Handler
	PlayerHandler     *players.Handler
	MarketHandler     *marketdata.Handler
	InstrumentHandler *instruments.Handler
	PriceWS           http.Handler
	InternalToken     string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Internal-Token")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ws", d.PriceWS.ServeHTTP)
		r.Get("/prices", d.MarketHandler.Prices)
		r.Get("/prices/history", d.MarketHandler.History)
		r.Get("/instruments", d.InstrumentHandler.List)

		r.Get("/players/{id}", d.PlayerHandler.State)
		r.Get("/players/{id}/stats", d.PlayerHandler.Stats)

		r.Get("/positions", d.PositionHandler.List)
		r.Get("/positions/history", d.PositionHandler.History)
		r.Post("/positions/open", d.PositionHandler.Open)
		r.Post("/positions/{id}/close", d.PositionHandler.Close)

		r.Group(func(r chi.Router) {
			r.Use(InternalAuth(d.InternalToken))
			r.Post("/internal/instruments", d.InstrumentHandler.Create)
			r.Put("/internal/instruments/{symbol}", d.InstrumentHandler.Update)
			r.Delete("/internal/instruments/{symbol}", d.InstrumentHandler.Delete)
		})
	})

	return r
}
