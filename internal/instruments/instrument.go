package instruments

import "time"

// Instrument is a tradable symbol. Simulated instruments are driven by the
// internal stochastic process; external ones relay a real-world feed.
type Instrument struct {
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	CurrentPrice float64   `json:"current_price"`
	MaxLeverage  int       `json:"max_leverage"`
	External     bool      `json:"is_external"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
