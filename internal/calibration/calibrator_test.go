package calibration

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/stats"
)

// fixedDay returns a day whose book never changes: one bid at 100 and one ask
// at 101, both with 10 shares. Every event has size 2.
func fixedDay() *model.TradingDay {
	snap := model.Snapshot{
		Bids: []model.Level{{Price: 100, Volume: 10}},
		Asks: []model.Level{{Price: 101, Volume: 10}},
	}
	events := []model.Event{
		{Time: 0, Type: model.Submission, Size: 2, Price: 100, Direction: model.Buy},
		{Time: 1, Type: model.Submission, Size: 2, Price: 100, Direction: model.Buy},
		{Time: 2, Type: model.Submission, Size: 2, Price: 101, Direction: model.Sell},
		{Time: 3, Type: model.Submission, Size: 2, Price: 95, Direction: model.Buy},
		{Time: 4, Type: model.VisibleExecution, Size: 2, Price: 101, Direction: model.Sell},
		{Time: 5, Type: model.Cancellation, Size: 2, Price: 100, Direction: model.Buy},
		{Time: 6, Type: model.Deletion, Size: 2, Price: 101, Direction: model.Sell},
		{Time: 7, Type: model.HiddenExecution, Size: 2, Price: 100, Direction: model.Buy},
		{Time: 8, Type: model.Submission, Size: 2, Price: 100, Direction: model.Buy},
	}
	day := &model.TradingDay{
		Symbol: "TEST",
		Date:   time.Date(2012, 6, 21, 0, 0, 0, 0, time.UTC),
		Events: events,
	}
	for range events {
		day.Snapshots = append(day.Snapshots, snap)
	}
	return day
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-12*math.Max(1, math.Abs(b))
}

func TestClassifyDay(t *testing.T) {
	c := ClassifyDay(fixedDay())

	if len(c.Limit) != 4 {
		t.Errorf("limit orders = %d, want 4", len(c.Limit))
	}
	if len(c.Market) != 1 {
		t.Errorf("market orders = %d, want 1", len(c.Market))
	}
	if len(c.Canceled) != 2 {
		t.Errorf("cancellations = %d, want 2", len(c.Canceled))
	}
	if c.Len() != 7 {
		t.Errorf("Len = %d, want 7", c.Len())
	}

	wantDist := []int64{1, 1, 6, 1}
	for i, o := range c.Limit {
		if o.Distance != wantDist[i] {
			t.Errorf("limit %d distance = %d, want %d", i, o.Distance, wantDist[i])
		}
	}
}

func TestClassifyDay_SkipsMissingOppositeQuote(t *testing.T) {
	day := &model.TradingDay{
		Events: []model.Event{
			{Time: 0, Type: model.Submission, Size: 1, Price: 100, Direction: model.Buy},
			{Time: 1, Type: model.Submission, Size: 1, Price: 99, Direction: model.Buy},
		},
		Snapshots: []model.Snapshot{
			{Bids: []model.Level{{Price: 100, Volume: 1}}},
			{Bids: []model.Level{{Price: 100, Volume: 1}, {Price: 99, Volume: 1}}},
		},
	}
	if c := ClassifyDay(day); c.Len() != 0 {
		t.Errorf("classified %d orders without an ask, want 0", c.Len())
	}
}

func TestTickSize(t *testing.T) {
	day := &model.TradingDay{
		Snapshots: []model.Snapshot{
			{Bids: []model.Level{{Price: 5000, Volume: 1}}, Asks: []model.Level{{Price: 5300, Volume: 1}}},
			{Bids: []model.Level{{Price: 4900, Volume: 1}}, Asks: []model.Level{{Price: 5500, Volume: 1}}},
		},
	}
	got, err := TickSize(day)
	if err != nil {
		t.Fatalf("TickSize: %v", err)
	}
	if got != 100 {
		t.Errorf("TickSize = %d, want 100", got)
	}

	single := &model.TradingDay{Snapshots: []model.Snapshot{{Bids: []model.Level{{Price: 1, Volume: 1}}}}}
	if _, err := TickSize(single); !errors.Is(err, ErrTickSize) {
		t.Errorf("TickSize error = %v, want ErrTickSize", err)
	}
}

func TestCalibrateDay(t *testing.T) {
	c, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := c.CalibrateDay(fixedDay())
	if err != nil {
		t.Fatalf("CalibrateDay: %v", err)
	}

	// sigma = 2, T = 8, band = [1, 1], in-band average depth = 10/2
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"sigma", p.CharacteristicOrderSize, 2},
		{"alpha", p.LimitOrderRateDensity, 3.0 / (8 * 1 * 2)},
		{"mu", p.MarketOrderRate, 1.0 / (8 * 2)},
		{"delta", p.CancellationRate, 2.0 / (5 * 8 * 2)},
		{"band lower", p.BandLower, 1},
		{"band upper", p.BandUpper, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !approx(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
	if p.PriceTickSize != 1 {
		t.Errorf("tick size = %d, want 1", p.PriceTickSize)
	}
	if p.SimulationIntervalSize != 1 {
		t.Errorf("interval = %d, want 1", p.SimulationIntervalSize)
	}
	if len(p.TradingDays) != 1 || p.TradingDays[0] != "2012-06-21" {
		t.Errorf("trading days = %v", p.TradingDays)
	}
	if p.Symbol != "TEST" {
		t.Errorf("symbol = %q", p.Symbol)
	}
}

func TestCalibrate_NoEvents(t *testing.T) {
	c, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Calibrate(nil); !errors.Is(err, ErrNoEvents) {
		t.Errorf("Calibrate(nil) error = %v, want ErrNoEvents", err)
	}
	if _, err := c.Calibrate([]*model.TradingDay{{Symbol: "X"}}); !errors.Is(err, ErrNoEvents) {
		t.Errorf("Calibrate(empty day) error = %v, want ErrNoEvents", err)
	}
}

func TestCalibrate_AveragesDays(t *testing.T) {
	c, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	one, err := c.CalibrateDay(fixedDay())
	if err != nil {
		t.Fatalf("CalibrateDay: %v", err)
	}
	second := fixedDay()
	second.Date = second.Date.AddDate(0, 0, 1)
	both, err := c.Calibrate([]*model.TradingDay{fixedDay(), second})
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if !approx(both.LimitOrderRateDensity, one.LimitOrderRateDensity) ||
		!approx(both.MarketOrderRate, one.MarketOrderRate) ||
		!approx(both.CancellationRate, one.CancellationRate) {
		t.Errorf("averaging identical days changed rates: %v vs %v", both, one)
	}
	if len(both.TradingDays) != 2 {
		t.Errorf("trading days = %v, want 2 entries", both.TradingDays)
	}
}

func TestCalibrate_SkipsUnusableDays(t *testing.T) {
	c, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	one, err := c.CalibrateDay(fixedDay())
	if err != nil {
		t.Fatalf("CalibrateDay: %v", err)
	}

	// a single event has no pre-state, so nothing can be classified
	thin := fixedDay()
	thin.Date = thin.Date.AddDate(0, 0, 1)
	thin.Events = thin.Events[:1]
	thin.Snapshots = thin.Snapshots[:1]

	got, err := c.Calibrate([]*model.TradingDay{nil, thin, fixedDay()})
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if !approx(got.MarketOrderRate, one.MarketOrderRate) {
		t.Errorf("mu = %v, want %v", got.MarketOrderRate, one.MarketOrderRate)
	}
	if len(got.TradingDays) != 1 || got.TradingDays[0] != "2012-06-21" {
		t.Errorf("trading days = %v, want only 2012-06-21", got.TradingDays)
	}
}

func TestUnusable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no events", fmt.Errorf("calibrate: %w", ErrNoEvents), true},
		{"tick size", fmt.Errorf("calibrate: %w", ErrTickSize), true},
		{"empty profile", fmt.Errorf("depth profile: %w", stats.ErrEmptyDistribution), true},
		{"quantile range", stats.ErrQuantileRange, false},
		{"other", errors.New("disk on fire"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unusable(tt.err); got != tt.want {
				t.Errorf("Unusable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAverage(t *testing.T) {
	got, err := Average([]model.Parameter{
		{LimitOrderRateDensity: 1, MarketOrderRate: 2, CancellationRate: 0.1, PriceTickSize: 100, CharacteristicOrderSize: 10, SimulationIntervalSize: 20},
		{LimitOrderRateDensity: 3, MarketOrderRate: 4, CancellationRate: 0.3, PriceTickSize: 50, CharacteristicOrderSize: 30, SimulationIntervalSize: 31},
	})
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if got.LimitOrderRateDensity != 2 || got.MarketOrderRate != 3 || !approx(got.CancellationRate, 0.2) {
		t.Errorf("rates = %v", got)
	}
	if got.CharacteristicOrderSize != 20 {
		t.Errorf("sigma = %v, want 20", got.CharacteristicOrderSize)
	}
	if got.PriceTickSize != 50 {
		t.Errorf("tick size = %d, want minimum 50", got.PriceTickSize)
	}
	if got.SimulationIntervalSize != 26 {
		t.Errorf("interval = %d, want 26", got.SimulationIntervalSize)
	}

	if _, err := Average(nil); !errors.Is(err, ErrNoEvents) {
		t.Errorf("Average(nil) error = %v, want ErrNoEvents", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"full range", Config{0, 1}, false},
		{"inverted", Config{0.8, 0.1}, true},
		{"equal", Config{0.5, 0.5}, true},
		{"negative", Config{-0.1, 0.5}, true},
		{"above one", Config{0.1, 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, stats.ErrQuantileRange) {
				t.Errorf("error %v does not wrap ErrQuantileRange", err)
			}
		})
	}
}

func TestSaveLoadParameter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	p := model.Parameter{
		Symbol:                  "AAPL",
		TradingDays:             []string{"2012-06-21"},
		LimitOrderRateDensity:   0.5,
		MarketOrderRate:         1.25,
		CancellationRate:        0.01,
		PriceTickSize:           100,
		CharacteristicOrderSize: 87.5,
		SimulationIntervalSize:  42,
	}
	if err := SaveParameter(path, p); err != nil {
		t.Fatalf("SaveParameter: %v", err)
	}
	got, err := LoadParameter(path)
	if err != nil {
		t.Fatalf("LoadParameter: %v", err)
	}
	if got.String() != p.String() || got.Symbol != p.Symbol || len(got.TradingDays) != 1 {
		t.Errorf("loaded %+v, want %+v", got, p)
	}

	if _, err := LoadParameter(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
