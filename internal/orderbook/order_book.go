package orderbook

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/stats"
)

// Errors
var (
	ErrEmptySide      = errors.New("order book side is empty")
	ErrRankOutOfRange = errors.New("rank outside depth of price range")
	ErrCrossedBook    = errors.New("best bid is not below best ask")
)

// PricePoint is a best bid/ask observation.
type PricePoint struct {
	Time float64
	Bid  int64
	Ask  int64
}

// Counters counts applied operations per event kind.
type Counters struct {
	LimitBuy   int64
	LimitSell  int64
	MarketBuy  int64
	MarketSell int64
	CancelBuy  int64
	CancelSell int64
}

// Total returns the number of operations applied.
func (c Counters) Total() int64 {
	return c.LimitBuy + c.LimitSell + c.MarketBuy + c.MarketSell + c.CancelBuy + c.CancelSell
}

// OrderBook holds bid and ask depth, the simulation clock, and the history
// of best prices. It is owned by a single goroutine.
type OrderBook struct {
	bids *BookSide
	asks *BookSide

	time     float64
	series   []PricePoint
	counters Counters
}

// New returns an empty book at time zero.
func New() *OrderBook {
	return &OrderBook{
		bids: newBookSide(model.Buy),
		asks: newBookSide(model.Sell),
	}
}

// NewFromDepth builds a book from per-tick depth maps. Non-positive depths
// are ignored.
func NewFromDepth(bids, asks map[int64]int64) (*OrderBook, error) {
	b := New()
	for tick, depth := range bids {
		b.bids.add(tick, depth)
	}
	for tick, depth := range asks {
		b.asks.add(tick, depth)
	}
	bid, okBid := b.bids.Best()
	ask, okAsk := b.asks.Best()
	if okBid && okAsk && bid >= ask {
		return nil, fmt.Errorf("bid %d ask %d: %w", bid, ask, ErrCrossedBook)
	}
	b.recordPrice()
	return b, nil
}

// Bids returns the bid side.
func (b *OrderBook) Bids() *BookSide { return b.bids }

// Asks returns the ask side.
func (b *OrderBook) Asks() *BookSide { return b.asks }

func (b *OrderBook) sideOf(side model.Side) *BookSide {
	if side == model.Buy {
		return b.bids
	}
	return b.asks
}

// Time returns the simulation clock.
func (b *OrderBook) Time() float64 { return b.time }

// SetTime moves the simulation clock.
func (b *OrderBook) SetTime(t float64) { b.time = t }

// Counters returns the operation counters.
func (b *OrderBook) Counters() Counters { return b.counters }

// PriceSeries returns the recorded best price history.
func (b *OrderBook) PriceSeries() []PricePoint {
	out := make([]PricePoint, len(b.series))
	copy(out, b.series)
	return out
}

// BestBid returns the highest bid tick, or false if there are no bids.
func (b *OrderBook) BestBid() (int64, bool) { return b.bids.Best() }

// BestAsk returns the lowest ask tick, or false if there are no asks.
func (b *OrderBook) BestAsk() (int64, bool) { return b.asks.Best() }

// SubmitLimitBuy adds amount to the bid depth at tick.
func (b *OrderBook) SubmitLimitBuy(tick, amount int64) {
	b.bids.add(tick, amount)
	b.counters.LimitBuy++
	b.recordPrice()
}

// SubmitLimitSell adds amount to the ask depth at tick.
func (b *OrderBook) SubmitLimitSell(tick, amount int64) {
	b.asks.add(tick, amount)
	b.counters.LimitSell++
	b.recordPrice()
}

// SubmitMarketBuy removes amount from the best ask level and returns the tick
// it matched at. Only the best level is touched; an emptied level is deleted
// and the next ask becomes best.
func (b *OrderBook) SubmitMarketBuy(amount int64) (int64, error) {
	ask, ok := b.asks.Best()
	if !ok {
		return 0, fmt.Errorf("market buy: asks: %w", ErrEmptySide)
	}
	b.asks.remove(ask, amount)
	b.counters.MarketBuy++
	b.recordPrice()
	return ask, nil
}

// SubmitMarketSell removes amount from the best bid level and returns the tick
// it matched at.
func (b *OrderBook) SubmitMarketSell(amount int64) (int64, error) {
	bid, ok := b.bids.Best()
	if !ok {
		return 0, fmt.Errorf("market sell: bids: %w", ErrEmptySide)
	}
	b.bids.remove(bid, amount)
	b.counters.MarketSell++
	b.recordPrice()
	return bid, nil
}

// CancelLimitBuy removes amount from the bid depth at tick. Cancelling more
// than the resting depth removes the level.
func (b *OrderBook) CancelLimitBuy(tick, amount int64) {
	b.bids.remove(tick, amount)
	b.counters.CancelBuy++
	b.recordPrice()
}

// CancelLimitSell removes amount from the ask depth at tick.
func (b *OrderBook) CancelLimitSell(tick, amount int64) {
	b.asks.remove(tick, amount)
	b.counters.CancelSell++
	b.recordPrice()
}

// NumberOfOrders returns the depth on side with lo <= tick <= hi.
func (b *OrderBook) NumberOfOrders(side model.Side, lo, hi int64) int64 {
	return b.sideOf(side).Sum(lo, hi)
}

// InverseCDF translates a rank in [1, NumberOfOrders(side, lo, hi)] into the
// depth-weighted tick holding that unit.
func (b *OrderBook) InverseCDF(side model.Side, lo, hi, rank int64) (int64, error) {
	return b.sideOf(side).InverseCDF(lo, hi, rank)
}

// SampleWeighted draws a tick in [lo, hi] on side with probability
// proportional to its depth.
func (b *OrderBook) SampleWeighted(side model.Side, lo, hi int64, r *rand.Rand) (int64, error) {
	levels := b.sideOf(side).Levels(lo, hi)
	if len(levels) == 0 {
		return 0, fmt.Errorf("sample %s [%d, %d]: %w", side, lo, hi, ErrEmptySide)
	}
	ticks := make([]int64, len(levels))
	weights := make([]float64, len(levels))
	for i, lvl := range levels {
		ticks[i] = lvl.Price
		weights[i] = float64(lvl.Volume)
	}
	c, err := stats.NewCategorical(ticks, weights)
	if err != nil {
		return 0, err
	}
	return c.Sample(r), nil
}

// DepthProfile returns every (tick, depth) pair of both sides in ascending
// tick order.
func (b *OrderBook) DepthProfile() (bids, asks []model.Level) {
	return b.bids.All(), b.asks.All()
}

// Snapshot returns the levels whose distance to the best opposite quote is at
// most window ticks, best level first on each side.
func (b *OrderBook) Snapshot(window int64) model.Snapshot {
	var snap model.Snapshot
	bid, okBid := b.bids.Best()
	ask, okAsk := b.asks.Best()
	if !okBid || !okAsk {
		return snap
	}

	bidLevels := b.bids.Levels(ask-window, bid)
	snap.Bids = make([]model.Level, len(bidLevels))
	for i, lvl := range bidLevels {
		snap.Bids[len(bidLevels)-1-i] = lvl
	}
	snap.Asks = b.asks.Levels(ask, bid+window)
	return snap
}

// Clone returns a deep copy of the book.
func (b *OrderBook) Clone() *OrderBook {
	c := New()
	for _, lvl := range b.bids.All() {
		c.bids.add(lvl.Price, lvl.Volume)
	}
	for _, lvl := range b.asks.All() {
		c.asks.add(lvl.Price, lvl.Volume)
	}
	c.time = b.time
	c.counters = b.counters
	c.series = b.PriceSeries()
	return c
}

// recordPrice appends a price point when the best quotes changed and both
// sides are populated.
func (b *OrderBook) recordPrice() {
	bid, okBid := b.bids.Best()
	ask, okAsk := b.asks.Best()
	if !okBid || !okAsk {
		return
	}
	if n := len(b.series); n > 0 && b.series[n-1].Bid == bid && b.series[n-1].Ask == ask {
		return
	}
	b.series = append(b.series, PricePoint{Time: b.time, Bid: bid, Ask: ask})
}
