// Package feed relays real-world prices for externally quoted instruments.
// Simulated instruments never touch it.
package feed

import "context"

// Adapter exposes the latest relayed price per symbol. Implementations keep
// their own connection lifecycle behind Run.
type Adapter interface {
	// Run blocks until ctx is cancelled, keeping the upstream connection
	// alive with reconnects.
	Run(ctx context.Context)
	// Reload swaps the subscribed symbol set.
	Reload(symbols []string)
	// LatestPrice returns the most recent price for symbol, false when the
	// feed has not delivered one yet.
	LatestPrice(symbol string) (float64, bool)
}

// Disabled is the adapter used when no external feed is configured.
// Externally quoted instruments simply hold their last known price.
type Disabled struct{}

func (Disabled) Run(ctx context.Context)            { <-ctx.Done() }
func (Disabled) Reload([]string)                    {}
func (Disabled) LatestPrice(string) (float64, bool) { return 0, false }
