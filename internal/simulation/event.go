package simulation

import (
	"fmt"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/stats"
)

// EventKind enumerates the competing order flow events.
type EventKind int

const (
	MarketBuy EventKind = iota
	MarketSell
	LimitBuy
	LimitSell
	CancelBuy
	CancelSell

	numEventKinds
)

// EventKinds lists every kind in rate-table order.
var EventKinds = [numEventKinds]EventKind{MarketBuy, MarketSell, LimitBuy, LimitSell, CancelBuy, CancelSell}

func (k EventKind) String() string {
	switch k {
	case MarketBuy:
		return "market_buy"
	case MarketSell:
		return "market_sell"
	case LimitBuy:
		return "limit_buy"
	case LimitSell:
		return "limit_sell"
	case CancelBuy:
		return "cancel_buy"
	case CancelSell:
		return "cancel_sell"
	default:
		return fmt.Sprintf("event_kind(%d)", int(k))
	}
}

// Side returns the book side the event acts on.
func (k EventKind) Side() model.Side {
	switch k {
	case MarketBuy, LimitSell, CancelSell:
		return model.Sell
	default:
		return model.Buy
	}
}

// Rates holds one rate per event kind, indexed by EventKind.
type Rates [numEventKinds]float64

// EventRates returns the rates of the six events given the depth within the
// simulation interval on each side.
func EventRates(p model.Parameter, bidDepth, askDepth int64) Rates {
	limit := p.LimitOrderRateDensity * float64(p.SimulationIntervalSize)
	var r Rates
	r[MarketBuy] = p.MarketOrderRate
	r[MarketSell] = p.MarketOrderRate
	r[LimitBuy] = limit
	r[LimitSell] = limit
	r[CancelBuy] = p.CancellationRate * float64(bidDepth)
	r[CancelSell] = p.CancellationRate * float64(askDepth)
	return r
}

// Total returns the sum of all rates.
func (r Rates) Total() float64 {
	var total float64
	for _, v := range r {
		total += v
	}
	return total
}

// Probabilities returns rate_i / Total. All zero if Total is zero.
func (r Rates) Probabilities() Rates {
	var p Rates
	total := r.Total()
	if total <= 0 {
		return p
	}
	for i, v := range r {
		p[i] = v / total
	}
	return p
}

// sampler returns a categorical sampler over event kinds.
func (r Rates) sampler() (*stats.Categorical[EventKind], error) {
	return stats.NewCategorical(EventKinds[:], r[:])
}
