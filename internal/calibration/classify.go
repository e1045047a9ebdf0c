package calibration

import (
	"errors"
	"fmt"
	"slices"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
)

// ErrTickSize is returned when fewer than two distinct level prices exist.
var ErrTickSize = errors.New("cannot infer price tick size")

// Order is a classified historical event.
type Order struct {
	Time      float64
	Size      int64
	Price     int64
	Direction model.Side
	// Distance to the best opposite quote before the event, in raw price
	// units. Positive for orders resting behind the spread.
	Distance int64
}

// ClassifiedDay splits a trading day into limit, market and cancel orders.
type ClassifiedDay struct {
	Limit    []Order
	Market   []Order
	Canceled []Order
}

// Len returns the number of classified orders.
func (c ClassifiedDay) Len() int {
	return len(c.Limit) + len(c.Market) + len(c.Canceled)
}

// ClassifyDay classifies the events of day. Events without a recorded
// pre-state, or whose pre-state lacks the opposite quote, are skipped.
// Hidden executions, cross trades and halts carry no model event.
func ClassifyDay(day *model.TradingDay) ClassifiedDay {
	var c ClassifiedDay
	for k := 1; k < day.Len(); k++ {
		ev := day.Events[k]
		pre, _ := day.PreState(k)

		var dist int64
		switch ev.Direction {
		case model.Buy:
			ask, ok := pre.BestAsk()
			if !ok {
				continue
			}
			dist = ask - ev.Price
		case model.Sell:
			bid, ok := pre.BestBid()
			if !ok {
				continue
			}
			dist = ev.Price - bid
		default:
			continue
		}

		o := Order{
			Time:      ev.Time,
			Size:      ev.Size,
			Price:     ev.Price,
			Direction: ev.Direction,
			Distance:  dist,
		}
		switch ev.Type {
		case model.Submission:
			c.Limit = append(c.Limit, o)
		case model.Cancellation, model.Deletion:
			c.Canceled = append(c.Canceled, o)
		case model.VisibleExecution:
			c.Market = append(c.Market, o)
		}
	}
	return c
}

// CharacteristicOrderSize returns the mean size over all classified orders.
func CharacteristicOrderSize(c ClassifiedDay) (float64, error) {
	var sum int64
	var n int
	for _, orders := range [][]Order{c.Limit, c.Market, c.Canceled} {
		for _, o := range orders {
			sum += o.Size
			n++
		}
	}
	if n == 0 {
		return 0, ErrNoEvents
	}
	return float64(sum) / float64(n), nil
}

// TickSize returns the greatest common divisor of the gaps between distinct
// level prices observed in the day's snapshots.
func TickSize(day *model.TradingDay) (int64, error) {
	seen := make(map[int64]struct{})
	for _, snap := range day.Snapshots {
		for _, lvl := range snap.Bids {
			seen[lvl.Price] = struct{}{}
		}
		for _, lvl := range snap.Asks {
			seen[lvl.Price] = struct{}{}
		}
	}
	prices := make([]int64, 0, len(seen))
	for p := range seen {
		prices = append(prices, p)
	}
	if len(prices) < 2 {
		return 0, fmt.Errorf("%d distinct prices: %w", len(prices), ErrTickSize)
	}
	slices.Sort(prices)

	var g int64
	for i := 1; i < len(prices); i++ {
		g = gcd(g, prices[i]-prices[i-1])
	}
	return g, nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// volumeInBand sums the size of orders with lo <= Distance <= hi.
func volumeInBand(orders []Order, lo, hi float64) int64 {
	var v int64
	for _, o := range orders {
		if d := float64(o.Distance); d >= lo && d <= hi {
			v += o.Size
		}
	}
	return v
}

func volume(orders []Order) int64 {
	var v int64
	for _, o := range orders {
		v += o.Size
	}
	return v
}
