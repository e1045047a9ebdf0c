package model

import (
	"fmt"
	"time"
)

// PriceScale is the number of raw price units per dollar in LOBSTER files.
const PriceScale = 10_000

// PriceExponent is the decimal exponent matching PriceScale.
const PriceExponent = 4

// -----------------------------------------------------------------------------
// Enums
// -----------------------------------------------------------------------------

// Side is the direction of an order. Values follow the LOBSTER direction column.
type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", int8(s))
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	return -s
}

// EventType classifies a message in a LOBSTER event stream.
type EventType int

const (
	Submission       EventType = 1 // new limit order
	Cancellation     EventType = 2 // partial cancellation
	Deletion         EventType = 3 // total deletion of a limit order
	VisibleExecution EventType = 4 // execution of a visible limit order
	HiddenExecution  EventType = 5 // execution of a hidden limit order
	CrossTrade       EventType = 6 // auction trade
	TradingHalt      EventType = 7
)

func (t EventType) String() string {
	switch t {
	case Submission:
		return "submission"
	case Cancellation:
		return "cancellation"
	case Deletion:
		return "deletion"
	case VisibleExecution:
		return "visible_execution"
	case HiddenExecution:
		return "hidden_execution"
	case CrossTrade:
		return "cross_trade"
	case TradingHalt:
		return "trading_halt"
	default:
		return fmt.Sprintf("event_type(%d)", int(t))
	}
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t >= Submission && t <= TradingHalt
}

// -----------------------------------------------------------------------------
// Historical data
// -----------------------------------------------------------------------------

// Event is a single order book event.
type Event struct {
	Time      float64   // Seconds after midnight (or since simulation start)
	Type      EventType // Event classification
	OrderID   int64     // Exchange order id (0 for simulated events)
	Size      int64     // Shares
	Price     int64     // Raw price
	Direction Side      // Side of the resting limit order
}

// Level is one occupied price level of a book snapshot.
type Level struct {
	Price  int64 // Raw price
	Volume int64 // Shares
}

// Snapshot is the visible book after an event.
// Asks are ordered best (lowest) first, bids best (highest) first.
type Snapshot struct {
	Asks []Level
	Bids []Level
}

// BestAsk returns the lowest ask price, or false when the ask side is empty.
func (s Snapshot) BestAsk() (int64, bool) {
	if len(s.Asks) == 0 {
		return 0, false
	}
	return s.Asks[0].Price, true
}

// BestBid returns the highest bid price, or false when the bid side is empty.
func (s Snapshot) BestBid() (int64, bool) {
	if len(s.Bids) == 0 {
		return 0, false
	}
	return s.Bids[0].Price, true
}

// TradingDay holds one day of aligned event and snapshot streams.
// Events[k] moves the book from Snapshots[k-1] to Snapshots[k].
type TradingDay struct {
	Symbol    string
	Date      time.Time
	Events    []Event
	Snapshots []Snapshot
}

// Len returns the number of aligned (event, snapshot) pairs.
func (d *TradingDay) Len() int {
	return min(len(d.Events), len(d.Snapshots))
}

// Duration returns the time span covered by the day's events.
func (d *TradingDay) Duration() float64 {
	n := d.Len()
	if n < 2 {
		return 0
	}
	return d.Events[n-1].Time - d.Events[0].Time
}

// PreState returns the book as it was immediately before Events[k].
// The first event has no recorded pre-state.
func (d *TradingDay) PreState(k int) (Snapshot, bool) {
	if k <= 0 || k > d.Len() {
		return Snapshot{}, false
	}
	return d.Snapshots[k-1], true
}

// DateString formats the trading date as YYYY-MM-DD.
func (d *TradingDay) DateString() string {
	return d.Date.Format(time.DateOnly)
}

// -----------------------------------------------------------------------------
// Model parameters
// -----------------------------------------------------------------------------

// Parameter holds the calibrated rates of the zero-intelligence model.
//
// Rates are expressed in units of the characteristic order size: the limit
// order rate density is per tick and per second on each side, the market
// order rate is per second on each side, and the cancellation rate is per
// unit of resting depth and per second.
type Parameter struct {
	Symbol      string   `json:"symbol,omitempty"`
	TradingDays []string `json:"trading_days,omitempty"`

	LimitOrderRateDensity   float64 `json:"limit_order_rate_density"`
	MarketOrderRate         float64 `json:"market_order_rate"`
	CancellationRate        float64 `json:"cancellation_rate"`
	PriceTickSize           int64   `json:"price_tick_size"`
	CharacteristicOrderSize float64 `json:"characteristic_order_size"`
	SimulationIntervalSize  int64   `json:"simulation_interval_size"`

	// Calibration band, as quantiles of the average depth profile and as
	// distances (raw price units) from the best opposite quote.
	LowerQuantile float64 `json:"lower_quantile"`
	UpperQuantile float64 `json:"upper_quantile"`
	BandLower     float64 `json:"band_lower"`
	BandUpper     float64 `json:"band_upper"`
}

// String returns a short human-readable summary.
func (p Parameter) String() string {
	return fmt.Sprintf("alpha=%.6g mu=%.6g delta=%.6g tick=%d sigma=%.4g L=%d",
		p.LimitOrderRateDensity, p.MarketOrderRate, p.CancellationRate,
		p.PriceTickSize, p.CharacteristicOrderSize, p.SimulationIntervalSize)
}
