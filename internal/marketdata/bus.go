// Package marketdata fans the per-tick price snapshot out to websocket
// clients and serves price reads over HTTP.
package marketdata

import "sync"

// PriceSnapshot is the wire format of one tick: every active symbol's price
// plus the tick timestamp in unix milliseconds.
type PriceSnapshot struct {
	Prices    map[string]float64 `json:"prices"`
	Timestamp int64              `json:"timestamp"`
}

type Bus struct {
	mu   sync.RWMutex
	subs map[chan PriceSnapshot]struct{}
	last PriceSnapshot
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan PriceSnapshot]struct{})}
}

func (b *Bus) Subscribe() chan PriceSnapshot {
	ch := make(chan PriceSnapshot, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan PriceSnapshot) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers the snapshot to every subscriber without blocking; a slow
// consumer misses ticks instead of stalling the scheduler.
func (b *Bus) Publish(snap PriceSnapshot) {
	b.mu.Lock()
	b.last = snap
	for ch := range b.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	b.mu.Unlock()
}

// Last returns the most recently published snapshot so a new connection can
// render immediately instead of waiting out the current tick.
func (b *Bus) Last() (PriceSnapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.last.Prices != nil
}
