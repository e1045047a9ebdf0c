package orderbook

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/stats"
)

func newTestBook(t *testing.T) *OrderBook {
	t.Helper()
	b, err := NewFromDepth(
		map[int64]int64{100: 50, 101: 60},
		map[int64]int64{110: 40, 111: 30},
	)
	if err != nil {
		t.Fatalf("NewFromDepth() error = %v", err)
	}
	return b
}

func TestOrderBook_MarketBuyScenario(t *testing.T) {
	b := newTestBook(t)

	price, err := b.SubmitMarketBuy(10)
	if err != nil {
		t.Fatalf("SubmitMarketBuy(10) error = %v", err)
	}
	if price != 110 {
		t.Errorf("match price = %d, want 110", price)
	}
	if got := b.Asks().Depth(110); got != 30 {
		t.Errorf("ask[110] = %d, want 30", got)
	}
	if ask, _ := b.BestAsk(); ask != 110 {
		t.Errorf("BestAsk() = %d, want 110", ask)
	}

	if _, err := b.SubmitMarketBuy(30); err != nil {
		t.Fatalf("SubmitMarketBuy(30) error = %v", err)
	}
	if b.Asks().Depth(110) != 0 || b.Asks().Len() != 1 {
		t.Errorf("level 110 should be removed, asks = %v", b.Asks().All())
	}
	if ask, _ := b.BestAsk(); ask != 111 {
		t.Errorf("BestAsk() = %d, want 111", ask)
	}
}

func TestOrderBook_MarketSell(t *testing.T) {
	b := newTestBook(t)

	price, err := b.SubmitMarketSell(100)
	if err != nil {
		t.Fatalf("SubmitMarketSell() error = %v", err)
	}
	if price != 101 {
		t.Errorf("match price = %d, want 101", price)
	}
	if bid, _ := b.BestBid(); bid != 100 {
		t.Errorf("BestBid() = %d, want 100 (only the best level is consumed)", bid)
	}
	if got := b.Bids().Depth(100); got != 50 {
		t.Errorf("bid[100] = %d, want 50", got)
	}
}

func TestOrderBook_MarketOrderEmptySide(t *testing.T) {
	b := New()
	if _, err := b.SubmitMarketBuy(1); !errors.Is(err, ErrEmptySide) {
		t.Errorf("SubmitMarketBuy() error = %v, want ErrEmptySide", err)
	}
	if _, err := b.SubmitMarketSell(1); !errors.Is(err, ErrEmptySide) {
		t.Errorf("SubmitMarketSell() error = %v, want ErrEmptySide", err)
	}
	if _, ok := b.BestBid(); ok {
		t.Error("BestBid() on empty book should report false")
	}
}

func TestOrderBook_SubmitCancelRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		side  model.Side
		tick  int64
		depth int64
	}{
		{"existing bid level", model.Buy, 100, 50},
		{"new bid level", model.Buy, 95, 0},
		{"existing ask level", model.Sell, 111, 30},
		{"new ask level", model.Sell, 120, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBook(t)
			side := b.sideOf(tt.side)
			levels := side.Len()

			if tt.side == model.Buy {
				b.SubmitLimitBuy(tt.tick, 7)
			} else {
				b.SubmitLimitSell(tt.tick, 7)
			}
			if got := side.Depth(tt.tick); got != tt.depth+7 {
				t.Fatalf("depth after submit = %d, want %d", got, tt.depth+7)
			}

			if tt.side == model.Buy {
				b.CancelLimitBuy(tt.tick, 7)
			} else {
				b.CancelLimitSell(tt.tick, 7)
			}
			if got := side.Depth(tt.tick); got != tt.depth {
				t.Errorf("depth after cancel = %d, want %d", got, tt.depth)
			}
			if side.Len() != levels {
				t.Errorf("levels = %d, want %d", side.Len(), levels)
			}
		})
	}
}

func TestOrderBook_OverCancel(t *testing.T) {
	b := newTestBook(t)

	b.CancelLimitBuy(101, 1000)
	if got := b.Bids().Depth(101); got != 0 {
		t.Errorf("bid[101] = %d, want 0", got)
	}
	if b.Bids().Len() != 1 {
		t.Errorf("bid levels = %d, want 1", b.Bids().Len())
	}
	if bid, _ := b.BestBid(); bid != 100 {
		t.Errorf("BestBid() = %d, want 100", bid)
	}
	if b.Bids().Total() != 50 {
		t.Errorf("bid total = %d, want 50", b.Bids().Total())
	}

	// cancelling a missing level is a no-op
	b.CancelLimitSell(150, 5)
	if b.Asks().Total() != 70 {
		t.Errorf("ask total = %d, want 70", b.Asks().Total())
	}

	for _, lvl := range append(b.Bids().All(), b.Asks().All()...) {
		if lvl.Volume <= 0 {
			t.Errorf("level %d has non-positive depth %d", lvl.Price, lvl.Volume)
		}
	}
}

func TestOrderBook_NumberOfOrders(t *testing.T) {
	b := newTestBook(t)

	tests := []struct {
		side   model.Side
		lo, hi int64
		want   int64
	}{
		{model.Buy, 100, 101, 110},
		{model.Buy, 101, 101, 60},
		{model.Buy, 90, 99, 0},
		{model.Sell, 110, 150, 70},
		{model.Sell, 111, 111, 30},
	}
	for _, tt := range tests {
		if got := b.NumberOfOrders(tt.side, tt.lo, tt.hi); got != tt.want {
			t.Errorf("NumberOfOrders(%v, %d, %d) = %d, want %d", tt.side, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestOrderBook_InverseCDF(t *testing.T) {
	b := newTestBook(t)

	tests := []struct {
		rank int64
		want int64
	}{
		{1, 100},
		{50, 100},
		{51, 101},
		{110, 101},
	}
	for _, tt := range tests {
		got, err := b.InverseCDF(model.Buy, 100, 101, tt.rank)
		if err != nil {
			t.Fatalf("InverseCDF(rank=%d) error = %v", tt.rank, err)
		}
		if got != tt.want {
			t.Errorf("InverseCDF(rank=%d) = %d, want %d", tt.rank, got, tt.want)
		}
	}

	for _, rank := range []int64{0, 111} {
		if _, err := b.InverseCDF(model.Buy, 100, 101, rank); !errors.Is(err, ErrRankOutOfRange) {
			t.Errorf("InverseCDF(rank=%d) error = %v, want ErrRankOutOfRange", rank, err)
		}
	}
}

func TestOrderBook_SampleWeighted(t *testing.T) {
	b := newTestBook(t)
	r := stats.NewRand(3)

	const draws = 200_000
	counts := make(map[int64]int)
	for i := 0; i < draws; i++ {
		tick, err := b.SampleWeighted(model.Sell, 110, 111, r)
		if err != nil {
			t.Fatalf("SampleWeighted() error = %v", err)
		}
		counts[tick]++
	}
	freq := float64(counts[110]) / draws
	if math.Abs(freq-40.0/70.0) > 0.01 {
		t.Errorf("frequency of 110 = %.4f, want %.4f", freq, 40.0/70.0)
	}

	if _, err := b.SampleWeighted(model.Sell, 200, 300, r); !errors.Is(err, ErrEmptySide) {
		t.Errorf("SampleWeighted() on empty range error = %v, want ErrEmptySide", err)
	}
}

func TestOrderBook_PriceSeries(t *testing.T) {
	b := newTestBook(t)

	b.SetTime(1)
	b.SubmitLimitBuy(99, 5) // best unchanged
	b.SetTime(2)
	b.SubmitLimitBuy(105, 5) // new best bid
	b.SetTime(3)
	if _, err := b.SubmitMarketBuy(40); err != nil { // ask 110 -> 111
		t.Fatal(err)
	}

	want := []PricePoint{
		{Time: 0, Bid: 101, Ask: 110},
		{Time: 2, Bid: 105, Ask: 110},
		{Time: 3, Bid: 105, Ask: 111},
	}
	if got := b.PriceSeries(); !slices.Equal(got, want) {
		t.Errorf("PriceSeries() = %v, want %v", got, want)
	}

	c := b.Counters()
	if c.LimitBuy != 2 || c.MarketBuy != 1 || c.Total() != 3 {
		t.Errorf("Counters() = %+v", c)
	}
}

func TestOrderBook_Snapshot(t *testing.T) {
	b, err := NewFromDepth(
		map[int64]int64{95: 1, 98: 2, 99: 3},
		map[int64]int64{101: 4, 102: 5, 106: 6},
	)
	if err != nil {
		t.Fatal(err)
	}

	snap := b.Snapshot(4)
	// bids within 4 ticks of the ask (101): 97..99; asks within 4 of the bid (99): 99..103
	wantBids := []model.Level{{Price: 99, Volume: 3}, {Price: 98, Volume: 2}}
	wantAsks := []model.Level{{Price: 101, Volume: 4}, {Price: 102, Volume: 5}}
	if !slices.Equal(snap.Bids, wantBids) {
		t.Errorf("Snapshot bids = %v, want %v", snap.Bids, wantBids)
	}
	if !slices.Equal(snap.Asks, wantAsks) {
		t.Errorf("Snapshot asks = %v, want %v", snap.Asks, wantAsks)
	}
}

func TestNewFromDepth_Crossed(t *testing.T) {
	_, err := NewFromDepth(map[int64]int64{110: 1}, map[int64]int64{110: 1})
	if !errors.Is(err, ErrCrossedBook) {
		t.Errorf("NewFromDepth() error = %v, want ErrCrossedBook", err)
	}
}

func TestOrderBook_CloneIsIndependent(t *testing.T) {
	b := newTestBook(t)
	c := b.Clone()

	c.SubmitLimitBuy(105, 10)
	if b.Bids().Depth(105) != 0 {
		t.Error("clone mutation leaked into the original")
	}

	bids, asks := b.DepthProfile()
	cb, ca := c.DepthProfile()
	if len(cb) != len(bids)+1 || !slices.Equal(ca, asks) {
		t.Errorf("clone depth = %v / %v, original %v / %v", cb, ca, bids, asks)
	}
}
