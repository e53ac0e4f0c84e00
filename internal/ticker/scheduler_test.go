package ticker

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lv-perps/internal/engine"
	"lv-perps/internal/instruments"
	"lv-perps/internal/marketdata"
	"lv-perps/internal/pricesim"
	"lv-perps/internal/types"
)

type noFeed struct{}

func (noFeed) LatestPrice(string) (float64, bool) { return 0, false }

func newTestScheduler(t *testing.T) (*Scheduler, *instruments.Registry, *engine.Manager, *marketdata.Bus, *pricesim.History) {
	t.Helper()
	registry := instruments.NewRegistry(nil)
	registry.Seed([]instruments.Instrument{
		{Symbol: "MEME", Name: "Meme Index", CurrentPrice: 100, MaxLeverage: 100, Active: true},
		{Symbol: "BTCUSDT", Name: "Bitcoin", MaxLeverage: 50, External: true, Active: true},
		{Symbol: "OLD", Name: "Retired", CurrentPrice: 5, MaxLeverage: 10, Active: false},
	})
	sim := pricesim.New(pricesim.DefaultParams(), noFeed{}, rand.New(rand.NewSource(1)))
	manager := engine.NewManager(registry, nil, nil, engine.Options{})
	history := pricesim.NewHistory(10)
	bus := marketdata.NewBus()
	sched := NewScheduler(registry, sim, manager, history, bus, time.Second)
	return sched, registry, manager, bus, history
}

func TestTickAdvancesPricesAndPublishes(t *testing.T) {
	sched, registry, _, bus, history := newTestScheduler(t)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	now := time.Now()
	sched.Tick(now)

	snap := <-sub
	assert.EqualValues(t, now.UnixMilli(), snap.Timestamp)
	assert.Contains(t, snap.Prices, "MEME")
	// inactive symbols never tick
	assert.NotContains(t, snap.Prices, "OLD")
	// external symbol without a feed quote holds its (empty) price silently
	assert.NotContains(t, snap.Prices, "BTCUSDT")

	inst, _ := registry.Get("MEME")
	assert.Equal(t, snap.Prices["MEME"], inst.CurrentPrice)
	require.Len(t, history.Tail("MEME"), 1)
}

func TestTickMarksOpenPositions(t *testing.T) {
	sched, _, manager, _, _ := newTestScheduler(t)

	pos, err := manager.Open(context.Background(), 1, "MEME", types.DirectionLong,
		decimal.NewFromInt(100), 5)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pos.EntryPrice)

	now := time.Now()
	for i := 0; i < 10; i++ {
		sched.Tick(now.Add(time.Duration(i) * time.Second))
	}

	positions := manager.OpenPositions(1)
	require.Len(t, positions, 1)
	assert.NotEqual(t, positions[0].EntryPrice, positions[0].CurrentPrice)
	assert.False(t, positions[0].PnL.IsZero())
}

func TestTickPrunesRemovedInstruments(t *testing.T) {
	sched, registry, _, _, history := newTestScheduler(t)

	sched.Tick(time.Now())
	require.NotEmpty(t, history.Tail("MEME"))

	// drop MEME from the active set; the next tick cleans up its series
	registry.Seed([]instruments.Instrument{
		{Symbol: "DOGE", Name: "Doge", CurrentPrice: 50, MaxLeverage: 50, Active: true},
	})
	sched.Tick(time.Now())

	assert.Empty(t, history.Tail("MEME"))
	assert.NotEmpty(t, history.Tail("DOGE"))
}

func TestTickWithNoActiveInstruments(t *testing.T) {
	sched, registry, _, bus, _ := newTestScheduler(t)
	registry.Seed(nil)

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	sched.Tick(time.Now())

	select {
	case <-sub:
		t.Fatal("nothing should be published without instruments")
	default:
	}
}
