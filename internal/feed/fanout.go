package feed

import (
	"sync"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/orderbook"
)

// PriceFanout copies every observed price change into each subscriber's
// buffer. It satisfies the simulator's observer contract.
type PriceFanout struct {
	mu   sync.RWMutex
	subs []*Buffer[orderbook.PricePoint]
}

// NewPriceFanout returns a fanout without subscribers.
func NewPriceFanout() *PriceFanout {
	return &PriceFanout{}
}

// Subscribe adds a subscriber buffer and returns it.
func (f *PriceFanout) Subscribe(initialCapacity, maxCapacity int) *Buffer[orderbook.PricePoint] {
	b := NewBuffer[orderbook.PricePoint](initialCapacity, maxCapacity)
	f.mu.Lock()
	f.subs = append(f.subs, b)
	f.mu.Unlock()
	return b
}

// Subscribers returns the number of subscribers.
func (f *PriceFanout) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// ObservePrice publishes p to every subscriber.
func (f *PriceFanout) ObservePrice(p orderbook.PricePoint) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, b := range f.subs {
		b.Send(p)
	}
}

// Close closes every subscriber buffer.
func (f *PriceFanout) Close() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, b := range f.subs {
		b.Close()
	}
}
