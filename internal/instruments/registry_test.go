package instruments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRegistry() *Registry {
	r := NewRegistry(nil)
	r.Seed([]Instrument{
		{Symbol: "MEME", Name: "Meme Index", CurrentPrice: 100, MaxLeverage: 100, Active: true},
		{Symbol: "BTCUSDT", Name: "Bitcoin", MaxLeverage: 50, External: true, Active: true},
		{Symbol: "OLD", Name: "Retired", CurrentPrice: 5, MaxLeverage: 10, Active: false},
	})
	return r
}

func TestRegistryGet(t *testing.T) {
	r := seedRegistry()

	inst, ok := r.Get("MEME")
	require.True(t, ok)
	assert.Equal(t, 100.0, inst.CurrentPrice)

	_, ok = r.Get("NOPE")
	assert.False(t, ok)
}

func TestRegistryActiveSkipsInactive(t *testing.T) {
	r := seedRegistry()

	active := r.Active()
	assert.Len(t, active, 2)
	for _, inst := range active {
		assert.NotEqual(t, "OLD", inst.Symbol)
	}
}

func TestRegistryExternalSymbols(t *testing.T) {
	r := seedRegistry()
	assert.Equal(t, []string{"BTCUSDT"}, r.ExternalSymbols())
}

func TestRegistrySetPrice(t *testing.T) {
	r := seedRegistry()

	r.SetPrice("MEME", 101.5)
	inst, ok := r.Get("MEME")
	require.True(t, ok)
	assert.Equal(t, 101.5, inst.CurrentPrice)

	// unknown symbols are ignored
	r.SetPrice("NOPE", 1)
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := seedRegistry()

	inst, _ := r.Get("MEME")
	inst.CurrentPrice = 0

	again, _ := r.Get("MEME")
	assert.Equal(t, 100.0, again.CurrentPrice)
}
