package pricesim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lv-perps/internal/instruments"
)

type stubSource struct {
	prices map[string]float64
}

func (s stubSource) LatestPrice(symbol string) (float64, bool) {
	p, ok := s.prices[symbol]
	return p, ok
}

func simInstrument(price float64) instruments.Instrument {
	return instruments.Instrument{Symbol: "MEME", CurrentPrice: price, MaxLeverage: 100, Active: true}
}

func TestNextStaysAboveFloor(t *testing.T) {
	sim := New(DefaultParams(), stubSource{}, rand.New(rand.NewSource(1)))
	inst := simInstrument(1.02)
	now := time.Now()

	for i := 0; i < 10000; i++ {
		price := sim.Next(inst, now.Add(time.Duration(i)*time.Second))
		require.GreaterOrEqual(t, price, 1.0, "tick %d", i)
	}
}

func TestNextMovesWithinVolatilityBand(t *testing.T) {
	// suppress jolts so only the trending walk remains
	params := DefaultParams()
	params.SmallMoveProbability = 0
	params.CrashProbability = 0
	params.PumpProbability = 0

	sim := New(params, stubSource{}, rand.New(rand.NewSource(7)))
	inst := simInstrument(100)
	now := time.Now()

	prev := 100.0
	for i := 0; i < 5000; i++ {
		price := sim.Next(inst, now.Add(time.Duration(i)*time.Second))
		// trend magnitude is at most 0.0001, so one tick never moves more
		// than volatility + trend
		maxStep := prev * (params.Volatility + 0.0002)
		assert.LessOrEqual(t, price, prev+maxStep, "tick %d", i)
		assert.GreaterOrEqual(t, price, prev-maxStep, "tick %d", i)
		prev = price
	}
}

func TestCrashDropsPrice(t *testing.T) {
	params := DefaultParams()
	params.CrashProbability = 1

	sim := New(params, stubSource{}, rand.New(rand.NewSource(3)))
	inst := simInstrument(100)
	now := time.Now()

	// past the damping window the crash chance is the full probability, so
	// every tick crashes and removes between 2% and 5%
	price := sim.Next(inst, now)
	price2 := sim.Next(inst, now.Add(6*time.Minute))

	assert.Less(t, price2, price*0.981)
	assert.Greater(t, price2, price*0.949)
}

// countJolts ticks a fresh simulator and counts moves of 2% or more in the
// given direction. Non-jolt regimes are switched off so a 2% step can only
// come from a crash or a pump.
func countJolts(t *testing.T, params Params, seed int64, offset time.Duration, down bool) int {
	t.Helper()
	sim := New(params, stubSource{}, rand.New(rand.NewSource(seed)))
	inst := simInstrument(100)
	start := time.Now()

	prev := sim.Next(inst, start)
	jolts := 0
	for i := 0; i < 200; i++ {
		price := sim.Next(inst, start.Add(offset+time.Duration(i)*time.Second))
		if down && price < prev*0.981 {
			jolts++
		}
		if !down && price > prev*1.019 {
			jolts++
		}
		prev = price
	}
	return jolts
}

func TestCrashLessFrequentWhileYoung(t *testing.T) {
	params := Params{CrashProbability: 0.2}

	young := countJolts(t, params, 11, 0, true)
	seasoned := countJolts(t, params, 11, 6*time.Minute, true)

	// the chance drops to 0.06 inside the first five minutes
	assert.Greater(t, seasoned, 0)
	assert.Less(t, young, seasoned)
}

func TestPumpMoreFrequentWhenSeasoned(t *testing.T) {
	params := Params{PumpProbability: 0.4}

	young := countJolts(t, params, 11, 0, false)
	seasoned := countJolts(t, params, 11, 11*time.Minute, false)

	// the chance grows to 0.6 after ten minutes
	assert.Greater(t, young, 0)
	assert.Less(t, young, seasoned)
}

func TestExternalInstrumentRelaysFeed(t *testing.T) {
	src := stubSource{prices: map[string]float64{"BTCUSDT": 64123.5}}
	sim := New(DefaultParams(), src, rand.New(rand.NewSource(1)))

	inst := instruments.Instrument{Symbol: "BTCUSDT", CurrentPrice: 60000, External: true, Active: true}
	assert.Equal(t, 64123.5, sim.Next(inst, time.Now()))
}

func TestExternalInstrumentHoldsLastPriceOnFeedMiss(t *testing.T) {
	sim := New(DefaultParams(), stubSource{}, rand.New(rand.NewSource(1)))

	inst := instruments.Instrument{Symbol: "BTCUSDT", CurrentPrice: 60000, External: true, Active: true}
	assert.Equal(t, 60000.0, sim.Next(inst, time.Now()))
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Append("MEME", float64(i), int64(i))
	}

	tail := h.Tail("MEME")
	require.Len(t, tail, 3)
	assert.Equal(t, 3.0, tail[0].Price)
	assert.Equal(t, 5.0, tail[2].Price)
}

func TestHistoryTailIsACopy(t *testing.T) {
	h := NewHistory(10)
	h.Append("MEME", 1, 1)

	tail := h.Tail("MEME")
	tail[0].Price = 99

	assert.Equal(t, 1.0, h.Tail("MEME")[0].Price)
}
