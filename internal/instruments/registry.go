package instruments

import (
	"context"
	"sync"
)

// Registry is the in-memory view of the instrument table. The scheduler
// reads the active set every tick and writes simulated prices back, so an
// admin change becomes visible on the next tick after Reload without
// restarting anything.
type Registry struct {
	mu    sync.RWMutex
	store *Store
	items map[string]*Instrument
}

func NewRegistry(store *Store) *Registry {
	return &Registry{store: store, items: make(map[string]*Instrument)}
}

// Reload replaces the in-memory set from the store, keeping the freshest
// known price for symbols that survive the reload.
func (r *Registry) Reload(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	list, err := r.store.List(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]*Instrument, len(list))
	for i := range list {
		inst := list[i]
		if prev, ok := r.items[inst.Symbol]; ok && prev.CurrentPrice > 0 {
			inst.CurrentPrice = prev.CurrentPrice
		}
		next[inst.Symbol] = &inst
	}
	r.items = next
	return nil
}

// Seed loads instruments directly, bypassing the store.
func (r *Registry) Seed(list []Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]*Instrument, len(list))
	for i := range list {
		inst := list[i]
		r.items[inst.Symbol] = &inst
	}
}

func (r *Registry) Get(symbol string) (Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.items[symbol]
	if !ok {
		return Instrument{}, false
	}
	return *inst, true
}

// Active returns a snapshot of the active instruments. Order is not
// guaranteed; callers own the returned slice.
func (r *Registry) Active() []Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Instrument, 0, len(r.items))
	for _, inst := range r.items {
		if inst.Active {
			out = append(out, *inst)
		}
	}
	return out
}

// ExternalSymbols lists active externally priced symbols for the feed
// adapter subscription.
func (r *Registry) ExternalSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, inst := range r.items {
		if inst.Active && inst.External {
			out = append(out, inst.Symbol)
		}
	}
	return out
}

func (r *Registry) SetPrice(symbol string, price float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.items[symbol]; ok {
		inst.CurrentPrice = price
	}
}
