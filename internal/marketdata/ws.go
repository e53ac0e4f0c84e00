package marketdata

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// PriceWS streams the tick snapshots to browser clients.
type PriceWS struct {
	bus      *Bus
	upgrader websocket.Upgrader
}

func NewPriceWS(bus *Bus, origin string) *PriceWS {
	return &PriceWS{
		bus: bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func (h *PriceWS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	// the last snapshot goes out immediately so the client does not wait a
	// full tick for its first render
	if snap, ok := h.bus.Last(); ok {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	return strings.EqualFold(r.Header.Get("Origin"), origin)
}
