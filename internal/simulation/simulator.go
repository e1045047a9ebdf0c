package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/orderbook"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/stats"
)

var (
	// ErrNoActivity is returned when every event rate is zero.
	ErrNoActivity = errors.New("all event rates are zero")
	// ErrInvalidParameter is returned for negative or non-finite rates or an
	// empty interval.
	ErrInvalidParameter = errors.New("invalid model parameter")
	// ErrTerminated is returned when Run is called on a finished simulator.
	ErrTerminated = errors.New("simulator already terminated")
)

// Book is the order book capability set the simulator drives.
type Book interface {
	BestBid() (int64, bool)
	BestAsk() (int64, bool)
	NumberOfOrders(side model.Side, lo, hi int64) int64
	InverseCDF(side model.Side, lo, hi, rank int64) (int64, error)

	SubmitLimitBuy(tick, amount int64)
	SubmitLimitSell(tick, amount int64)
	SubmitMarketBuy(amount int64) (int64, error)
	SubmitMarketSell(amount int64) (int64, error)
	CancelLimitBuy(tick, amount int64)
	CancelLimitSell(tick, amount int64)

	Time() float64
	SetTime(t float64)
	Counters() orderbook.Counters
	PriceSeries() []orderbook.PricePoint
	DepthProfile() (bids, asks []model.Level)
	Snapshot(window int64) model.Snapshot
}

// Observer receives best price changes. It is called on the simulation
// goroutine and must not block.
type Observer interface {
	ObservePrice(p orderbook.PricePoint)
}

// State is the lifecycle state of a Simulator.
type State int

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// Result is the output of a completed run.
type Result struct {
	PriceSeries []orderbook.PricePoint
	Bids        []model.Level
	Asks        []model.Level
	Counters    orderbook.Counters
	Events      int64
	Duration    float64

	// History is the synthetic trading day; nil unless recording is enabled.
	History *model.TradingDay
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers a price observer.
func WithObserver(obs Observer) Option {
	return func(s *Simulator) {
		s.observer = obs
	}
}

// WithRecording records every event together with the post-event snapshot,
// keeping levels within window ticks of the opposite best quote.
func WithRecording(symbol string, window int64) Option {
	return func(s *Simulator) {
		s.recorder = newRecorder(symbol, window)
	}
}

// WithProgressInterval logs progress at debug level every n events.
func WithProgressInterval(n int64) Option {
	return func(s *Simulator) {
		s.progressEvery = n
	}
}

// Simulator runs the zero-intelligence event loop on a book.
type Simulator struct {
	param    model.Parameter
	book     Book
	rng      *rand.Rand
	logger   *slog.Logger
	observer Observer
	recorder *recorder

	progressEvery int64
	state         State
	events        int64
	lastBid       int64
	lastAsk       int64
}

// New creates a simulator. The random stream is owned by the simulator for
// the duration of the run.
func New(param model.Parameter, book Book, rng *rand.Rand, opts ...Option) (*Simulator, error) {
	if err := validateParameter(param); err != nil {
		return nil, err
	}
	if book == nil {
		return nil, errors.New("simulation: nil book")
	}
	if rng == nil {
		return nil, errors.New("simulation: nil random stream")
	}
	s := &Simulator{
		param:         param,
		book:          book,
		rng:           rng,
		logger:        slog.Default(),
		progressEvery: 100_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func validateParameter(p model.Parameter) error {
	switch {
	case !finite(p.LimitOrderRateDensity):
		return fmt.Errorf("limit order rate density %v: %w", p.LimitOrderRateDensity, ErrInvalidParameter)
	case !finite(p.MarketOrderRate):
		return fmt.Errorf("market order rate %v: %w", p.MarketOrderRate, ErrInvalidParameter)
	case !finite(p.CancellationRate):
		return fmt.Errorf("cancellation rate %v: %w", p.CancellationRate, ErrInvalidParameter)
	case p.LimitOrderRateDensity < 0:
		return fmt.Errorf("limit order rate density %v: %w", p.LimitOrderRateDensity, ErrInvalidParameter)
	case p.MarketOrderRate < 0:
		return fmt.Errorf("market order rate %v: %w", p.MarketOrderRate, ErrInvalidParameter)
	case p.CancellationRate < 0:
		return fmt.Errorf("cancellation rate %v: %w", p.CancellationRate, ErrInvalidParameter)
	case p.SimulationIntervalSize < 1:
		return fmt.Errorf("simulation interval size %d: %w", p.SimulationIntervalSize, ErrInvalidParameter)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// State returns the lifecycle state.
func (s *Simulator) State() State { return s.state }

// Run advances the simulation by duration seconds of model time. Events whose
// arrival time falls beyond the horizon are not applied; the clock is set to
// the horizon instead. A run either completes or terminates on error; the
// simulator cannot be resumed.
func (s *Simulator) Run(ctx context.Context, duration float64) (*Result, error) {
	if s.state == Terminated {
		return nil, ErrTerminated
	}
	defer func() { s.state = Terminated }()

	start := s.book.Time()
	end := start + duration
	s.lastBid, _ = s.book.BestBid()
	s.lastAsk, _ = s.book.BestAsk()

	s.logger.Info("simulation started",
		"duration", duration,
		"alpha", s.param.LimitOrderRateDensity,
		"mu", s.param.MarketOrderRate,
		"delta", s.param.CancellationRate,
		"interval", s.param.SimulationIntervalSize,
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("simulation at t=%.3f: %w", s.book.Time(), err)
		}

		done, err := s.step(end)
		if err != nil {
			s.logger.Error("simulation aborted",
				"time", s.book.Time(),
				"events", s.events,
				"error", err,
			)
			return nil, err
		}
		if done {
			break
		}
		if s.progressEvery > 0 && s.events%s.progressEvery == 0 {
			s.logger.Debug("simulation progress", "time", s.book.Time(), "events", s.events)
		}
	}

	bids, asks := s.book.DepthProfile()
	res := &Result{
		PriceSeries: s.book.PriceSeries(),
		Bids:        bids,
		Asks:        asks,
		Counters:    s.book.Counters(),
		Events:      s.events,
		Duration:    duration,
	}
	if s.recorder != nil {
		res.History = s.recorder.day
	}

	s.logger.Info("simulation finished",
		"events", s.events,
		"price_changes", len(res.PriceSeries),
	)
	return res, nil
}

// step draws and applies one event. It reports done when the next arrival
// lies beyond end.
func (s *Simulator) step(end float64) (bool, error) {
	bid, ask, err := s.quotes()
	if err != nil {
		return false, err
	}

	L := s.param.SimulationIntervalSize
	bidDepth := s.book.NumberOfOrders(model.Buy, bid-L, bid)
	askDepth := s.book.NumberOfOrders(model.Sell, ask, ask+L)

	rates := EventRates(s.param, bidDepth, askDepth)
	total := rates.Total()
	if total <= 0 {
		return false, ErrNoActivity
	}

	t := s.book.Time() + stats.Exponential(s.rng, total)
	if t > end {
		s.book.SetTime(end)
		return true, nil
	}
	s.book.SetTime(t)

	sampler, err := rates.sampler()
	if err != nil {
		return false, fmt.Errorf("build event sampler: %w", err)
	}
	kind := sampler.Sample(s.rng)

	price, err := s.apply(kind, bid, ask, bidDepth, askDepth)
	if err != nil {
		return false, fmt.Errorf("apply %s at t=%.3f: %w", kind, t, err)
	}
	s.events++

	if s.emptySide(model.Buy) {
		return false, fmt.Errorf("after %s at t=%.3f: bid %w", kind, t, orderbook.ErrEmptySide)
	}
	if s.emptySide(model.Sell) {
		return false, fmt.Errorf("after %s at t=%.3f: ask %w", kind, t, orderbook.ErrEmptySide)
	}

	if s.recorder != nil {
		s.recorder.record(t, kind, price, s.book)
	}
	s.notify(t)
	return false, nil
}

func (s *Simulator) quotes() (bid, ask int64, err error) {
	bid, ok := s.book.BestBid()
	if !ok {
		return 0, 0, fmt.Errorf("bid %w", orderbook.ErrEmptySide)
	}
	ask, ok = s.book.BestAsk()
	if !ok {
		return 0, 0, fmt.Errorf("ask %w", orderbook.ErrEmptySide)
	}
	return bid, ask, nil
}

func (s *Simulator) emptySide(side model.Side) bool {
	if side == model.Buy {
		_, ok := s.book.BestBid()
		return !ok
	}
	_, ok := s.book.BestAsk()
	return !ok
}

// apply mutates the book for one event and returns the affected price.
func (s *Simulator) apply(kind EventKind, bid, ask, bidDepth, askDepth int64) (int64, error) {
	L := s.param.SimulationIntervalSize
	switch kind {
	case MarketBuy:
		return s.book.SubmitMarketBuy(1)
	case MarketSell:
		return s.book.SubmitMarketSell(1)
	case LimitBuy:
		tick := ask - 1 - s.rng.Int64N(L)
		s.book.SubmitLimitBuy(tick, 1)
		return tick, nil
	case LimitSell:
		tick := bid + 1 + s.rng.Int64N(L)
		s.book.SubmitLimitSell(tick, 1)
		return tick, nil
	case CancelBuy:
		tick, err := s.book.InverseCDF(model.Buy, bid-L, bid, 1+s.rng.Int64N(bidDepth))
		if err != nil {
			return 0, err
		}
		s.book.CancelLimitBuy(tick, 1)
		return tick, nil
	case CancelSell:
		tick, err := s.book.InverseCDF(model.Sell, ask, ask+L, 1+s.rng.Int64N(askDepth))
		if err != nil {
			return 0, err
		}
		s.book.CancelLimitSell(tick, 1)
		return tick, nil
	default:
		return 0, fmt.Errorf("unknown event kind %d", int(kind))
	}
}

func (s *Simulator) notify(t float64) {
	if s.observer == nil {
		return
	}
	bid, _ := s.book.BestBid()
	ask, _ := s.book.BestAsk()
	if bid == s.lastBid && ask == s.lastAsk {
		return
	}
	s.lastBid, s.lastAsk = bid, ask
	s.observer.ObservePrice(orderbook.PricePoint{Time: t, Bid: bid, Ask: ask})
}
