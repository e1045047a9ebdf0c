package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/cache"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/calibration"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/config"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/lobster"
)

// One bid at 100 and one ask at 101 throughout; every order has size 2.
const messageCSV = `0,1,1,2,100,1
1,1,2,2,100,1
2,1,3,2,101,-1
3,1,4,2,95,1
4,4,5,2,101,-1
5,2,1,2,100,1
6,3,3,2,101,-1
8,1,6,2,100,1
`

func writeDay(t *testing.T, dir, date string) {
	t.Helper()
	writeMessages(t, dir, date, messageCSV)
}

func writeMessages(t *testing.T, dir, date, messages string) {
	t.Helper()
	d, _ := time.Parse(time.DateOnly, date)
	lines := strings.Count(messages, "\n")
	book := strings.Repeat("101,10,100,10\n", lines)
	for kind, content := range map[string]string{lobster.KindMessage: messages, lobster.KindOrderbook: book} {
		name := lobster.FileName(lobster.FileInfo{
			Symbol: "TEST", Date: d, StartMs: 34200000, EndMs: 57600000, Kind: kind, Levels: 1,
		})
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func testConfig(dir string) *config.Config {
	cfg := &config.Config{}
	cfg.Data.Dir = dir
	cfg.Data.Symbol = "TEST"
	cfg.Calibration.LowerQuantile = 0
	cfg.Calibration.UpperQuantile = 1
	cfg.ApplyDefaults()
	return cfg
}

func TestTradingDates(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, "2012-06-22")
	writeDay(t, dir, "2012-06-21")

	cfg := testConfig(dir)
	repo := lobster.NewRepository(lobster.Config{Dir: dir, Concurrency: 1}, nil)

	dates, err := tradingDates(repo, nil, cfg.Data)
	if err != nil {
		t.Fatalf("tradingDates: %v", err)
	}
	if len(dates) != 2 || dates[0].Format(time.DateOnly) != "2012-06-21" {
		t.Errorf("dates = %v", dates)
	}

	cfg.Data.Dates = []string{"2012-06-22"}
	dates, err = tradingDates(repo, nil, cfg.Data)
	if err != nil || len(dates) != 1 {
		t.Errorf("configured dates = %v, err %v", dates, err)
	}

	cfg.Data.Dates = []string{"22/06/2012"}
	if _, err := tradingDates(repo, nil, cfg.Data); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestCalibrateDays_UsesCache(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, "2012-06-21")
	writeDay(t, dir, "2012-06-22")

	cfg := testConfig(dir)
	repo := lobster.NewRepository(lobster.Config{Dir: dir, Concurrency: 2}, nil)
	calibrator, err := calibration.New(calibration.Config{LowerQuantile: 0, UpperQuantile: 1}, nil)
	if err != nil {
		t.Fatalf("calibration.New: %v", err)
	}
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache"), nil)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer store.Close()

	dates, err := tradingDates(repo, nil, cfg.Data)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	first, err := calibrateDays(ctx, repo, calibrator, store, cfg, dates, slog.Default())
	if err != nil {
		t.Fatalf("calibrateDays: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("got %d parameters, want 2", len(first))
	}
	for _, p := range first {
		if p.PriceTickSize != 1 || p.CharacteristicOrderSize != 2 {
			t.Errorf("param = %+v, want tick 1 and sigma 2", p)
		}
	}
	if first[0].TradingDays[0] != "2012-06-21" || first[1].TradingDays[0] != "2012-06-22" {
		t.Errorf("order = %v, %v", first[0].TradingDays, first[1].TradingDays)
	}

	// with the files gone only the cache can answer
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		os.Remove(filepath.Join(dir, e.Name()))
	}

	cachedDates, err := tradingDates(repo, store, cfg.Data)
	if err != nil {
		t.Fatalf("tradingDates from cache: %v", err)
	}
	if len(cachedDates) != 2 || !cachedDates[0].Equal(dates[0]) {
		t.Errorf("cached dates = %v, want %v", cachedDates, dates)
	}

	second, err := calibrateDays(ctx, repo, calibrator, store, cfg, cachedDates, slog.Default())
	if err != nil {
		t.Fatalf("calibrateDays from cache: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("got %d cached parameters, want 2", len(second))
	}
	if second[0].MarketOrderRate != first[0].MarketOrderRate {
		t.Errorf("cached mu = %v, want %v", second[0].MarketOrderRate, first[0].MarketOrderRate)
	}

	avg, err := calibration.Average(second)
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if len(avg.TradingDays) != 2 {
		t.Errorf("TradingDays = %v", avg.TradingDays)
	}
}

func TestCalibrateDays_Refresh(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, "2012-06-21")

	cfg := testConfig(dir)
	repo := lobster.NewRepository(lobster.Config{Dir: dir, Concurrency: 1}, nil)
	calibrator, err := calibration.New(calibration.Config{LowerQuantile: 0, UpperQuantile: 1}, nil)
	if err != nil {
		t.Fatalf("calibration.New: %v", err)
	}
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache"), nil)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	dates := []time.Time{time.Date(2012, 6, 21, 0, 0, 0, 0, time.UTC)}
	if _, err := calibrateDays(ctx, repo, calibrator, store, cfg, dates, slog.Default()); err != nil {
		t.Fatalf("calibrateDays: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		os.Remove(filepath.Join(dir, e.Name()))
	}

	// refreshing drops the cached entry, so only the missing files could answer
	cfg.Cache.Refresh = true
	params, err := calibrateDays(ctx, repo, calibrator, store, cfg, dates, slog.Default())
	if err != nil {
		t.Fatalf("calibrateDays with refresh: %v", err)
	}
	if len(params) != 0 {
		t.Errorf("got %d parameters after refresh, want 0", len(params))
	}
	cached, err := store.Dates("TEST")
	if err != nil || len(cached) != 0 {
		t.Errorf("cached dates after refresh = %v, %v, want none", cached, err)
	}
}

func TestCalibrateDays_SkipsUnusableDay(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, "2012-06-21")
	writeMessages(t, dir, "2012-06-22", "0,1,1,2,100,1\n")

	cfg := testConfig(dir)
	repo := lobster.NewRepository(lobster.Config{Dir: dir, Concurrency: 2}, nil)
	calibrator, err := calibration.New(calibration.Config{LowerQuantile: 0, UpperQuantile: 1}, nil)
	if err != nil {
		t.Fatalf("calibration.New: %v", err)
	}
	dates, err := tradingDates(repo, nil, cfg.Data)
	if err != nil || len(dates) != 2 {
		t.Fatalf("tradingDates = %v, %v", dates, err)
	}

	params, err := calibrateDays(context.Background(), repo, calibrator, nil, cfg, dates, slog.Default())
	if err != nil {
		t.Fatalf("calibrateDays: %v", err)
	}
	if len(params) != 1 || params[0].TradingDays[0] != "2012-06-21" {
		t.Errorf("params = %+v, want only 2012-06-21", params)
	}
}
