package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/calibration"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/config"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/database"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/export"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/feed"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/lobster"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/orderbook"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/publish"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/simulation"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/stats"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/stream"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/version"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/lob.yaml", "path to config file")
	paramsPath := flag.String("params", "", "parameter file (overrides calibration.params_file)")
	duration := flag.Float64("duration", 0, "seconds of model time (overrides simulation.duration)")
	seed := flag.Uint64("seed", 0, "random seed (overrides simulation.seed)")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *paramsPath != "" {
		cfg.Calibration.ParamsFile = *paramsPath
	}
	if *duration > 0 {
		cfg.Simulation.Duration = *duration
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}

	logger, err := cfg.Log.NewLogger(os.Stdout)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting simulate",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"params", cfg.Calibration.ParamsFile,
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
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	param, err := calibration.LoadParameter(cfg.Calibration.ParamsFile)
	if err != nil {
		return err
	}
	logger.Info("parameters loaded", "params", param.String())

	delim, err := export.ParseDelimiter(cfg.Output.Delimiter)
	if err != nil {
		return err
	}
	book, err := initialBook(cfg, param, delim, logger)
	if err != nil {
		return err
	}

	runID := uuid.New()
	logger = logger.With("run_id", runID.String())
	fanout := feed.NewPriceFanout()
	sinks := &sinkSet{logger: logger}
	defer sinks.stop()
	defer fanout.Close()

	var store *writer.RunStore
	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database.Timescale, "lob-simulate")
		if err != nil {
			return err
		}
		sinks.add("database", func(context.Context) error {
			pool.Close()
			return nil
		})
		sinks.pool = pool

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		store = writer.NewRunStore(pool, logger)
		if err := store.InsertRun(ctx, writer.Run{
			ID:        runID,
			Symbol:    param.Symbol,
			Seed:      cfg.Simulation.Seed,
			Duration:  cfg.Simulation.Duration,
			StartedAt: time.Now(),
			Parameter: param,
		}); err != nil {
			return err
		}

		pw := writer.NewPriceWriter(writer.WriterConfig{
			BatchSize:     cfg.Writers.BatchSize,
			FlushInterval: cfg.Writers.FlushInterval,
		}, runID, fanout.Subscribe(1024, cfg.Writers.BufferSize), pool, logger)
		if err := pw.Start(ctx); err != nil {
			return err
		}
		sinks.add("price_writer", pw.Stop)
	}

	if cfg.Kafka.Enabled {
		pub := publish.NewPublisher(publish.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, runID.String(), fanout.Subscribe(1024, cfg.Writers.BufferSize), nil, logger)
		pub.Start(ctx)
		sinks.add("kafka_publisher", pub.Stop)
		sinks.pub = pub
	}

	if cfg.Stream.Enabled {
		hub := stream.NewHub(stream.Config{
			WriteTimeout: cfg.Stream.WriteTimeout,
			PingInterval: cfg.Stream.PingInterval,
			ClientBuffer: 256,
		}, runID.String(), fanout.Subscribe(1024, cfg.Writers.BufferSize), logger)
		hubDone := make(chan struct{})
		go func() {
			hub.Run(ctx)
			close(hubDone)
		}()

		server := &http.Server{
			Addr:    cfg.Stream.Addr,
			Handler: newHandler(cfg.Stream.Path, hub, sinks, logger),
		}
		go func() {
			logger.Info("starting stream server", "addr", cfg.Stream.Addr, "path", cfg.Stream.Path)
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("stream server error", "error", err)
			}
		}()
		sinks.add("stream_server", func(ctx context.Context) error {
			select {
			case <-hubDone:
			case <-ctx.Done():
			}
			hub.Close()
			return server.Shutdown(ctx)
		})
	}

	opts := []simulation.Option{
		simulation.WithLogger(logger),
		simulation.WithProgressInterval(cfg.Simulation.ProgressInterval),
	}
	if fanout.Subscribers() > 0 {
		opts = append(opts, simulation.WithObserver(fanout))
	}
	if cfg.Simulation.RecordDepth > 0 {
		opts = append(opts, simulation.WithRecording(param.Symbol, cfg.Simulation.RecordDepth))
	}

	// the simulator mutates book in place
	initial := book.Clone()
	sim, err := simulation.New(param, book, stats.NewRand(cfg.Simulation.Seed), opts...)
	if err != nil {
		return err
	}
	res, err := sim.Run(ctx, cfg.Simulation.Duration)
	// remaining buffered prices still reach the sinks
	fanout.Close()
	if err != nil {
		return err
	}

	logger.Info("simulation complete",
		"events", res.Events,
		"price_changes", len(res.PriceSeries),
		"limit_orders", res.Counters.LimitBuy+res.Counters.LimitSell,
		"market_orders", res.Counters.MarketBuy+res.Counters.MarketSell,
		"cancellations", res.Counters.CancelBuy+res.Counters.CancelSell,
	)

	if err := exportResult(cfg, param, delim, initial, res, logger); err != nil {
		return err
	}

	if store != nil {
		// the run context may already be canceled by a signal
		dbCtx, dbCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer dbCancel()
		if err := store.InsertDepth(dbCtx, runID, res.Bids, res.Asks); err != nil {
			return err
		}
		if err := store.FinishRun(dbCtx, runID, res.Events, res.Counters); err != nil {
			return err
		}
	}
	return nil
}

// initialBook builds the starting book from a depth file or from the last
// snapshot of a historical day.
func initialBook(cfg *config.Config, param model.Parameter, delim rune, logger *slog.Logger) (*orderbook.OrderBook, error) {
	switch {
	case cfg.Simulation.InitialDepthFile != "":
		bids, asks, err := export.LoadInitialDepth(cfg.Simulation.InitialDepthFile, delim)
		if err != nil {
			return nil, err
		}
		logger.Info("initial book from depth file", "path", cfg.Simulation.InitialDepthFile)
		return orderbook.NewFromDepth(bids, asks)

	case cfg.Simulation.InitialDay != "":
		date, err := time.Parse(time.DateOnly, cfg.Simulation.InitialDay)
		if err != nil {
			return nil, fmt.Errorf("parse initial day: %w", err)
		}
		repo := lobster.NewRepository(lobster.Config{
			Dir:         cfg.Data.Dir,
			Levels:      cfg.Data.Levels,
			Concurrency: 1,
		}, logger)
		day, err := repo.LoadDay(cfg.Data.Symbol, date)
		if err != nil {
			return nil, err
		}
		if len(day.Snapshots) == 0 {
			return nil, fmt.Errorf("initial day %s has no snapshots", cfg.Simulation.InitialDay)
		}
		snap := day.Snapshots[len(day.Snapshots)-1]
		bids, asks := depthFromSnapshot(snap, param)
		logger.Info("initial book from historical snapshot",
			"date", cfg.Simulation.InitialDay,
			"bid_levels", len(bids),
			"ask_levels", len(asks),
		)
		return orderbook.NewFromDepth(bids, asks)

	default:
		return nil, errors.New("no initial book: set simulation.initial_depth_file or simulation.initial_day")
	}
}

// depthFromSnapshot converts a snapshot in raw prices and shares into ticks
// and units of the characteristic order size. Occupied levels keep at least
// one unit.
func depthFromSnapshot(snap model.Snapshot, param model.Parameter) (bids, asks map[int64]int64) {
	tick := max(param.PriceTickSize, 1)
	sigma := param.CharacteristicOrderSize
	if sigma <= 0 {
		sigma = 1
	}
	convert := func(levels []model.Level) map[int64]int64 {
		out := make(map[int64]int64, len(levels))
		for _, l := range levels {
			if l.Volume <= 0 {
				continue
			}
			out[l.Price/tick] += max(int64(math.Round(float64(l.Volume)/sigma)), 1)
		}
		return out
	}
	return convert(snap.Bids), convert(snap.Asks)
}

// exportResult writes the configured output files. initial, if set, is the
// book before the first event.
func exportResult(cfg *config.Config, param model.Parameter, delim rune, initial *orderbook.OrderBook, res *simulation.Result, logger *slog.Logger) error {
	format := export.DefaultFormat()
	format.Delimiter = delim
	format.TickSize = param.PriceTickSize
	format.Dollars = cfg.Output.Dollars
	depthFormat := format
	depthFormat.Ticks = cfg.Output.DepthTicks

	type output struct {
		name  string
		write func(io.Writer) error
	}
	outputs := []output{
		{cfg.Output.PriceSeries, func(w io.Writer) error { return export.WritePriceSeries(w, res.PriceSeries, format) }},
		{cfg.Output.DepthProfile, func(w io.Writer) error { return export.WriteDepthProfile(w, res.Bids, res.Asks, depthFormat) }},
	}
	if initial != nil {
		bids, asks := initial.DepthProfile()
		outputs = append(outputs, output{cfg.Output.InitialDepth, func(w io.Writer) error { return export.WriteDepthProfile(w, bids, asks, depthFormat) }})
	}
	if res.History != nil && cfg.Output.History != "" {
		outputs = append(outputs, output{cfg.Output.History, func(w io.Writer) error { return export.WriteHistory(w, res.History, format) }})
	}

	for _, o := range outputs {
		if o.name == "" {
			continue
		}
		path, err := export.WriteFile(filepath.Join(cfg.Output.Dir, o.name), cfg.Output.Compress, o.write)
		if err != nil {
			return err
		}
		logger.Info("exported", "path", path)
	}
	return nil
}

// sinkSet tracks background consumers so they can be stopped in reverse order.
type sinkSet struct {
	logger *slog.Logger
	names  []string
	stops  []func(context.Context) error
	pool   *pgxpool.Pool
	pub    *publish.Publisher
}

func (s *sinkSet) add(name string, stop func(context.Context) error) {
	s.names = append(s.names, name)
	s.stops = append(s.stops, stop)
}

func (s *sinkSet) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for i := len(s.stops) - 1; i >= 0; i-- {
		if err := s.stops[i](ctx); err != nil {
			s.logger.Error("failed to stop sink", "sink", s.names[i], "error", err)
		}
	}
}

// newHandler serves the price stream and a health endpoint.
func newHandler(path string, hub *stream.Hub, s *sinkSet, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, hub)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		hs := hub.Stats()
		health.Components["stream"] = map[string]any{
			"clients":   hs.Clients,
			"broadcast": hs.Broadcast,
			"dropped":   hs.Dropped,
		}
		if s.pub != nil {
			m := s.pub.Metrics()
			health.Components["kafka"] = map[string]any{
				"published": m.Published,
				"failed":    m.Failed,
				"batches":   m.Batches,
			}
		}
		if s.pool != nil {
			if err := s.pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["timescaledb"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["timescaledb"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Debug("write health response", "error", err)
		}
	})

	return mux
}
