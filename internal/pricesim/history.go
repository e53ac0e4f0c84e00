package pricesim

import "sync"

// PricePoint is one tick of a symbol's series.
type PricePoint struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// History keeps a bounded per-symbol tail of the price series for chart
// bootstrapping. The scheduler appends, HTTP handlers read.
type History struct {
	mu    sync.RWMutex
	limit int
	items map[string][]PricePoint
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 300
	}
	return &History{limit: limit, items: make(map[string][]PricePoint)}
}

func (h *History) Append(symbol string, price float64, ts int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	points := append(h.items[symbol], PricePoint{Price: price, Timestamp: ts})
	if len(points) > h.limit {
		points = points[len(points)-h.limit:]
	}
	h.items[symbol] = points
}

// Tail returns a copy of the stored points for symbol, oldest first.
func (h *History) Tail(symbol string) []PricePoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	points := h.items[symbol]
	out := make([]PricePoint, len(points))
	copy(out, points)
	return out
}

func (h *History) Drop(symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.items, symbol)
}
