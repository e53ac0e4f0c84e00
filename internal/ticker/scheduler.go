// Package ticker drives the simulation clock. One tick advances every
// active symbol, marks all open positions and publishes the price snapshot.
package ticker

import (
	"context"
	"log"
	"time"

	"lv-perps/internal/engine"
	"lv-perps/internal/instruments"
	"lv-perps/internal/marketdata"
	"lv-perps/internal/pricesim"
)

type Scheduler struct {
	registry *instruments.Registry
	sim      *pricesim.Simulator
	manager  *engine.Manager
	history  *pricesim.History
	bus      *marketdata.Bus
	interval time.Duration
	// symbols seen on the previous tick, for pruning removed instruments
	tracked map[string]struct{}
}

func NewScheduler(registry *instruments.Registry, sim *pricesim.Simulator, manager *engine.Manager,
	history *pricesim.History, bus *marketdata.Bus, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		registry: registry,
		sim:      sim,
		manager:  manager,
		history:  history,
		bus:      bus,
		interval: interval,
		tracked:  make(map[string]struct{}),
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("[ticker] running every %s", s.interval)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.Tick(now)
		}
	}
}

// Tick runs one full simulation step. The registry is re-read every tick, so
// instrument changes take effect without any coordination.
func (s *Scheduler) Tick(now time.Time) {
	active := s.registry.Active()
	s.pruneRemoved(active)
	if len(active) == 0 {
		return
	}

	ts := now.UnixMilli()
	prices := make(map[string]float64, len(active))
	for _, inst := range active {
		price := s.sim.Next(inst, now)
		if price <= 0 {
			// external instrument with no quote yet
			continue
		}
		s.registry.SetPrice(inst.Symbol, price)
		s.manager.ApplyPrice(inst.Symbol, price, now)
		s.history.Append(inst.Symbol, price, ts)
		prices[inst.Symbol] = price
	}
	if len(prices) == 0 {
		return
	}
	s.bus.Publish(marketdata.PriceSnapshot{Prices: prices, Timestamp: ts})
}

// pruneRemoved drops simulator state and chart history for symbols that
// left the active set since the previous tick. Only this goroutine touches
// the simulator, so the cleanup happens here rather than in the admin
// handler.
func (s *Scheduler) pruneRemoved(active []instruments.Instrument) {
	current := make(map[string]struct{}, len(active))
	for _, inst := range active {
		current[inst.Symbol] = struct{}{}
	}
	for symbol := range s.tracked {
		if _, ok := current[symbol]; !ok {
			s.sim.Forget(symbol)
			s.history.Drop(symbol)
		}
	}
	s.tracked = current
}
