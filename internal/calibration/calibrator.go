package calibration

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/stats"
)

// ErrNoEvents is returned when there is nothing to calibrate on.
var ErrNoEvents = errors.New("no historical events")

// Default calibration band quantiles.
const (
	DefaultLowerQuantile = 0.01
	DefaultUpperQuantile = 0.80
)

// Config holds the calibration band.
type Config struct {
	LowerQuantile float64
	UpperQuantile float64
}

// DefaultConfig returns the default band [0.01, 0.80].
func DefaultConfig() Config {
	return Config{
		LowerQuantile: DefaultLowerQuantile,
		UpperQuantile: DefaultUpperQuantile,
	}
}

// Validate checks 0 <= lower < upper <= 1.
func (c Config) Validate() error {
	if c.LowerQuantile < 0 || c.UpperQuantile > 1 || c.LowerQuantile >= c.UpperQuantile {
		return fmt.Errorf("band [%v, %v]: %w", c.LowerQuantile, c.UpperQuantile, stats.ErrQuantileRange)
	}
	return nil
}

// Calibrator turns trading days into model parameters.
type Calibrator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a calibrator. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) (*Calibrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calibrator{cfg: cfg, logger: logger}, nil
}

// CalibrateDay estimates the model parameters of a single trading day.
func (c *Calibrator) CalibrateDay(day *model.TradingDay) (model.Parameter, error) {
	var p model.Parameter
	if day == nil || day.Len() == 0 {
		return p, ErrNoEvents
	}

	orders := ClassifyDay(day)
	sigma, err := CharacteristicOrderSize(orders)
	if err != nil {
		return p, fmt.Errorf("calibrate %s: %w", day.DateString(), err)
	}

	tick, err := TickSize(day)
	if err != nil {
		return p, fmt.Errorf("calibrate %s: %w", day.DateString(), err)
	}

	T := day.Duration()
	if T <= 0 {
		return p, fmt.Errorf("calibrate %s: zero duration: %w", day.DateString(), ErrNoEvents)
	}

	raw, err := stats.AverageDepthProfile(day)
	if err != nil {
		return p, fmt.Errorf("depth profile %s: %w", day.DateString(), err)
	}
	profile, err := raw.Scale(1, 1/sigma)
	if err != nil {
		return p, fmt.Errorf("scale depth profile: %w", err)
	}

	lower, err := profile.Quantile(c.cfg.LowerQuantile)
	if err != nil {
		return p, fmt.Errorf("lower band: %w", err)
	}
	upper, err := profile.Quantile(c.cfg.UpperQuantile)
	if err != nil {
		return p, fmt.Errorf("upper band: %w", err)
	}
	bandTicks := (upper-lower)/float64(tick) + 1
	bandDepth := profile.Sum(lower, upper)

	marketVolume := float64(volume(orders.Market)) / sigma
	limitVolume := float64(volumeInBand(orders.Limit, lower, upper)) / sigma
	cancelVolume := float64(volumeInBand(orders.Canceled, lower, upper)) / sigma

	p = model.Parameter{
		Symbol:                  day.Symbol,
		LimitOrderRateDensity:   limitVolume / (T * bandTicks * 2),
		MarketOrderRate:         marketVolume / (T * 2),
		PriceTickSize:           tick,
		CharacteristicOrderSize: sigma,
		SimulationIntervalSize:  int64(math.Round(upper / float64(tick))),
		LowerQuantile:           c.cfg.LowerQuantile,
		UpperQuantile:           c.cfg.UpperQuantile,
		BandLower:               lower,
		BandUpper:               upper,
	}
	if bandDepth > 0 {
		p.CancellationRate = cancelVolume / (bandDepth * T * 2)
	}
	if !day.Date.IsZero() {
		p.TradingDays = []string{day.DateString()}
	}

	c.logger.Info("calibrated trading day",
		"symbol", day.Symbol,
		"date", day.DateString(),
		"events", day.Len(),
		"limit_orders", len(orders.Limit),
		"market_orders", len(orders.Market),
		"cancellations", len(orders.Canceled),
		"band_lower", lower,
		"band_upper", upper,
		"params", p.String(),
	)
	return p, nil
}

// Calibrate calibrates every day and averages the results. Unusable days are
// skipped with a warning; any other error aborts.
func (c *Calibrator) Calibrate(days []*model.TradingDay) (model.Parameter, error) {
	if len(days) == 0 {
		return model.Parameter{}, ErrNoEvents
	}
	params := make([]model.Parameter, 0, len(days))
	for _, day := range days {
		p, err := c.CalibrateDay(day)
		if Unusable(err) {
			c.logger.Warn("skipping trading day", "date", dayString(day), "error", err)
			continue
		}
		if err != nil {
			return model.Parameter{}, err
		}
		params = append(params, p)
	}
	return Average(params)
}

// Unusable reports whether err means a day holds too little data to
// calibrate on, as opposed to a failure that should stop the run.
func Unusable(err error) bool {
	return errors.Is(err, ErrNoEvents) ||
		errors.Is(err, ErrTickSize) ||
		errors.Is(err, stats.ErrEmptyDistribution)
}

func dayString(day *model.TradingDay) string {
	if day == nil {
		return ""
	}
	return day.DateString()
}

// Average combines per-day parameters: rates, order size, band and interval
// are averaged, the tick size is the smallest observed.
func Average(params []model.Parameter) (model.Parameter, error) {
	if len(params) == 0 {
		return model.Parameter{}, ErrNoEvents
	}

	out := model.Parameter{
		Symbol:        params[0].Symbol,
		PriceTickSize: params[0].PriceTickSize,
		LowerQuantile: params[0].LowerQuantile,
		UpperQuantile: params[0].UpperQuantile,
	}
	var interval float64
	for _, p := range params {
		out.LimitOrderRateDensity += p.LimitOrderRateDensity
		out.MarketOrderRate += p.MarketOrderRate
		out.CancellationRate += p.CancellationRate
		out.CharacteristicOrderSize += p.CharacteristicOrderSize
		out.BandLower += p.BandLower
		out.BandUpper += p.BandUpper
		interval += float64(p.SimulationIntervalSize)
		out.PriceTickSize = min(out.PriceTickSize, p.PriceTickSize)
		out.TradingDays = append(out.TradingDays, p.TradingDays...)
	}

	n := float64(len(params))
	out.LimitOrderRateDensity /= n
	out.MarketOrderRate /= n
	out.CancellationRate /= n
	out.CharacteristicOrderSize /= n
	out.BandLower /= n
	out.BandUpper /= n
	out.SimulationIntervalSize = int64(math.Round(interval / n))
	return out, nil
}
