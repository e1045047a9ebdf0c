package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/feed"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/orderbook"
)

// PriceWriter consumes price changes from a feed buffer and writes them to
// the simulated_prices table.
type PriceWriter struct {
	cfg    WriterConfig
	logger *slog.Logger
	runID  uuid.UUID

	// Input from the simulation fanout
	input *feed.Buffer[orderbook.PricePoint]

	// Database
	db DB

	// Batching
	batch       []priceRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewPriceWriter creates a new PriceWriter for one simulation run.
func NewPriceWriter(
	cfg WriterConfig,
	runID uuid.UUID,
	input *feed.Buffer[orderbook.PricePoint],
	db DB,
	logger *slog.Logger,
) *PriceWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceWriter{
		cfg:    cfg,
		runID:  runID,
		input:  input,
		db:     db,
		logger: logger.With("run_id", runID.String()),
		batch:  make([]priceRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming price changes and writing to the database.
func (w *PriceWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("price writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the input, flushes and shuts down. The final flush runs on ctx.
func (w *PriceWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping price writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("price writer stopped")
	case <-ctx.Done():
		w.logger.Warn("price writer stop timed out")
	}

	// Pick up whatever the consumer left behind, then final flush
	for _, p := range w.input.Drain(0) {
		w.append(p)
	}
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *PriceWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop drains the input buffer into the batch.
func (w *PriceWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		points := w.input.Drain(w.cfg.BatchSize)
		if len(points) == 0 {
			if w.input.Closed() {
				return
			}
			select {
			case <-w.ctx.Done():
				return
			case <-w.input.Ready():
			}
			continue
		}

		shouldFlush := false
		for _, p := range points {
			shouldFlush = w.append(p) || shouldFlush
		}
		if shouldFlush {
			w.flush(w.ctx)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *PriceWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// append adds a price change to the batch and reports whether the batch is
// full.
func (w *PriceWriter) append(p orderbook.PricePoint) bool {
	row := w.transform(p)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// transform converts a PricePoint to a priceRow.
func (w *PriceWriter) transform(p orderbook.PricePoint) priceRow {
	return priceRow{
		RunID:   w.runID.String(),
		SimTime: p.Time,
		Bid:     p.Bid,
		Ask:     p.Ask,
		Spread:  p.Ask - p.Bid,
	}
}

// flush writes the current batch to the database.
func (w *PriceWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]priceRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed prices",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *PriceWriter) batchInsert(ctx context.Context, rows []priceRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO simulated_prices (run_id, sim_time, bid, ask, spread)
			VALUES ($1::uuid, $2, $3, $4, $5)
			ON CONFLICT (run_id, sim_time) DO NOTHING
		`, r.RunID, r.SimTime, r.Bid, r.Ask, r.Spread)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
