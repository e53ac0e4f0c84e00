// Package pricesim generates the synthetic price series for simulated
// instruments: a trending random walk with occasional jolts, crashes and
// pumps, floored at 1.
package pricesim

import (
	"math/rand"
	"time"

	"lv-perps/internal/instruments"
)

const (
	crashDampWindow = 5 * time.Minute
	pumpBoostWindow = 10 * time.Minute
	priceFloor      = 1.0
)

// Params tune the per-tick stochastic process.
type Params struct {
	Volatility           float64
	SmallMoveProbability float64
	CrashProbability     float64
	PumpProbability      float64
}

func DefaultParams() Params {
	return Params{
		Volatility:           0.004,
		SmallMoveProbability: 0.03,
		CrashProbability:     0.0008,
		PumpProbability:      0.0008,
	}
}

// PriceSource is the slice of the feed adapter the simulator needs for
// externally quoted instruments.
type PriceSource interface {
	LatestPrice(symbol string) (float64, bool)
}

type symbolState struct {
	price          float64
	trend          float64
	ticksSinceFlip int
	flipAfter      int
	startedAt      time.Time
}

// Simulator is driven by a single scheduler goroutine; it carries no lock of
// its own.
type Simulator struct {
	params Params
	rng    *rand.Rand
	source PriceSource
	states map[string]*symbolState
}

func New(params Params, source PriceSource, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{
		params: params,
		rng:    rng,
		source: source,
		states: make(map[string]*symbolState),
	}
}

// Next advances the series for inst by one tick and returns the new price.
// External instruments relay the feed and hold their last price when the
// feed has nothing yet.
func (s *Simulator) Next(inst instruments.Instrument, now time.Time) float64 {
	if inst.External {
		if price, ok := s.source.LatestPrice(inst.Symbol); ok {
			return price
		}
		if inst.CurrentPrice > 0 {
			return inst.CurrentPrice
		}
		return 0
	}

	st, ok := s.states[inst.Symbol]
	if !ok {
		st = &symbolState{
			price:     inst.CurrentPrice,
			startedAt: now,
		}
		if st.price <= 0 {
			st.price = priceFloor
		}
		s.resetTrend(st)
		s.states[inst.Symbol] = st
	}

	st.ticksSinceFlip++
	if st.ticksSinceFlip > st.flipAfter {
		s.resetTrend(st)
	}

	age := now.Sub(st.startedAt)

	// fresh listings crash less often, seasoned symbols pump more often;
	// the move size stays 2-5% either way
	crashChance := s.params.CrashProbability
	if age < crashDampWindow {
		crashChance *= 0.3
	}
	pumpChance := s.params.PumpProbability
	if age > pumpBoostWindow {
		pumpChance *= 1.5
	}

	switch {
	case s.rng.Float64() < crashChance:
		drop := 0.02 + s.rng.Float64()*0.03
		st.price *= 1 - drop
	case s.rng.Float64() < pumpChance:
		jump := 0.02 + s.rng.Float64()*0.03
		st.price *= 1 + jump
	case s.rng.Float64() < s.params.SmallMoveProbability:
		move := st.price*0.001 + s.rng.Float64()*st.price*0.003
		if s.rng.Float64() < 0.5 {
			move = -move
		}
		st.price += move
	default:
		st.price *= 1 + st.trend + (s.rng.Float64()-0.5)*2*s.params.Volatility
	}

	if st.price < priceFloor {
		st.price = priceFloor
	}
	return st.price
}

func (s *Simulator) resetTrend(st *symbolState) {
	st.trend = (s.rng.Float64() - 0.5) * 0.0002
	st.ticksSinceFlip = 0
	st.flipAfter = 60 + s.rng.Intn(120)
}

// Forget drops the series state for a symbol, used when an instrument is
// removed or its price is overridden.
func (s *Simulator) Forget(symbol string) {
	delete(s.states, symbol)
}
