package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/cache"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/calibration"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/config"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/database"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/lobster"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/version"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/lob.yaml", "path to config file")
	outPath := flag.String("out", "", "parameter file (overrides calibration.params_file)")
	refresh := flag.Bool("refresh", false, "recalibrate days already in the cache")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *outPath != "" {
		cfg.Calibration.ParamsFile = *outPath
	}
	if *refresh {
		cfg.Cache.Refresh = true
	}

	logger, err := cfg.Log.NewLogger(os.Stdout)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting calibrate",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"symbol", cfg.Data.Symbol,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("calibration failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repo := lobster.NewRepository(lobster.Config{
		Dir:         cfg.Data.Dir,
		Levels:      cfg.Data.Levels,
		Concurrency: cfg.Data.Concurrency,
	}, logger)

	calibrator, err := calibration.New(calibration.Config{
		LowerQuantile: cfg.Calibration.LowerQuantile,
		UpperQuantile: cfg.Calibration.UpperQuantile,
	}, logger)
	if err != nil {
		return err
	}

	var store *cache.Cache
	if cfg.Cache.Enabled {
		store, err = cache.Open(cfg.Cache.Dir, logger)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	dates, err := tradingDates(repo, store, cfg.Data)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		return fmt.Errorf("no trading days for %s in %s", cfg.Data.Symbol, cfg.Data.Dir)
	}

	params, err := calibrateDays(ctx, repo, calibrator, store, cfg, dates, logger)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return fmt.Errorf("calibrate %s: %w", cfg.Data.Symbol, calibration.ErrNoEvents)
	}

	param, err := calibration.Average(params)
	if err != nil {
		return err
	}
	param.Symbol = cfg.Data.Symbol

	if err := calibration.SaveParameter(cfg.Calibration.ParamsFile, param); err != nil {
		return err
	}
	logger.Info("parameters written",
		"path", cfg.Calibration.ParamsFile,
		"days", len(params),
		"params", param.String(),
	)

	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database.Timescale, "lob-calibrate")
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		if err := writer.NewRunStore(pool, logger).InsertParameter(ctx, param); err != nil {
			return err
		}
	}
	return nil
}

// tradingDates returns the configured dates, or every date on disk. With no
// day on disk it falls back to the dates held in store.
func tradingDates(repo *lobster.Repository, store *cache.Cache, data config.DataConfig) ([]time.Time, error) {
	if len(data.Dates) == 0 {
		dates, err := repo.Dates(data.Symbol)
		if len(dates) > 0 || store == nil {
			return dates, err
		}
		if cached, cerr := store.Dates(data.Symbol); cerr == nil && len(cached) > 0 {
			return cached, nil
		}
		return dates, err
	}
	dates := make([]time.Time, 0, len(data.Dates))
	for _, s := range data.Dates {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// calibrateDays returns one parameter per usable day in date order. Cached
// days are not reloaded unless cfg.Cache.Refresh is set. Unusable days are
// skipped as in Calibrator.Calibrate.
func calibrateDays(
	ctx context.Context,
	repo *lobster.Repository,
	calibrator *calibration.Calibrator,
	store *cache.Cache,
	cfg *config.Config,
	dates []time.Time,
	logger *slog.Logger,
) ([]model.Parameter, error) {
	key := func(d time.Time) cache.Key {
		return cache.Key{
			Symbol:        cfg.Data.Symbol,
			Date:          d,
			LowerQuantile: cfg.Calibration.LowerQuantile,
			UpperQuantile: cfg.Calibration.UpperQuantile,
		}
	}

	byDate := make(map[time.Time]model.Parameter, len(dates))
	var missing []time.Time
	for _, d := range dates {
		if store != nil && cfg.Cache.Refresh {
			if err := store.Delete(key(d)); err != nil {
				return nil, err
			}
		} else if store != nil {
			p, ok, err := store.Get(key(d))
			if err != nil {
				return nil, err
			}
			if ok {
				byDate[d] = p
				continue
			}
		}
		missing = append(missing, d)
	}
	logger.Info("calibration plan", "days", len(dates), "cached", len(byDate), "to_load", len(missing))

	if len(missing) > 0 {
		days, err := repo.LoadDays(ctx, cfg.Data.Symbol, missing)
		if err != nil {
			return nil, fmt.Errorf("load trading days: %w", err)
		}
		for _, day := range days {
			p, err := calibrator.CalibrateDay(day)
			if calibration.Unusable(err) {
				logger.Warn("skipping trading day", "date", day.DateString(), "error", err)
				continue
			}
			if err != nil {
				return nil, err
			}
			byDate[day.Date] = p
			if store != nil {
				if err := store.Put(key(day.Date), p); err != nil {
					logger.Warn("failed to cache parameters", "date", day.DateString(), "error", err)
				}
			}
		}
	}

	params := make([]model.Parameter, 0, len(byDate))
	for _, d := range dates {
		if p, ok := byDate[d]; ok {
			params = append(params, p)
		}
	}
	return params, nil
}
