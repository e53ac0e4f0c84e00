package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	bus.Publish(PriceSnapshot{Prices: map[string]float64{"MEME": 100}, Timestamp: 1})

	snap := <-sub
	assert.Equal(t, 100.0, snap.Prices["MEME"])
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	// overflow the subscriber buffer; Publish must keep returning
	for i := 0; i < 100; i++ {
		bus.Publish(PriceSnapshot{Prices: map[string]float64{"MEME": float64(i)}, Timestamp: int64(i)})
	}

	// the subscriber still drains whatever fit in its buffer
	snap := <-sub
	assert.Equal(t, 0.0, snap.Prices["MEME"])
}

func TestBusLastSnapshot(t *testing.T) {
	bus := NewBus()

	_, ok := bus.Last()
	assert.False(t, ok)

	bus.Publish(PriceSnapshot{Prices: map[string]float64{"MEME": 101}, Timestamp: 2})

	snap, ok := bus.Last()
	require.True(t, ok)
	assert.Equal(t, 101.0, snap.Prices["MEME"])
	assert.EqualValues(t, 2, snap.Timestamp)
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	_, open := <-sub
	assert.False(t, open)

	// publishing after unsubscribe must not panic on the closed channel
	bus.Publish(PriceSnapshot{Prices: map[string]float64{"MEME": 1}})
}
