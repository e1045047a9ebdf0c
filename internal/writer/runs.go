package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/orderbook"
)

// Run describes one simulation run.
type Run struct {
	ID        uuid.UUID
	Symbol    string
	Seed      uint64
	Duration  float64
	StartedAt time.Time
	Parameter model.Parameter
}

// RunStore writes run metadata, depth profiles and calibrations.
type RunStore struct {
	db     DB
	logger *slog.Logger
}

// NewRunStore creates a RunStore.
func NewRunStore(db DB, logger *slog.Logger) *RunStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunStore{db: db, logger: logger}
}

// InsertRun records the start of a run.
func (s *RunStore) InsertRun(ctx context.Context, run Run) error {
	params, err := json.Marshal(run.Parameter)
	if err != nil {
		return fmt.Errorf("marshal parameter: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO simulation_runs (run_id, symbol, seed, duration, started_at, parameters)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO NOTHING
	`, run.ID.String(), run.Symbol, int64(run.Seed), run.Duration, run.StartedAt.UnixMicro(), params)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	s.logger.Info("run recorded", "run_id", run.ID.String(), "symbol", run.Symbol)
	return nil
}

// FinishRun stores the event counters of a completed run.
func (s *RunStore) FinishRun(ctx context.Context, id uuid.UUID, events int64, counters orderbook.Counters) error {
	c, err := json.Marshal(counters)
	if err != nil {
		return fmt.Errorf("marshal counters: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO simulation_results (run_id, finished_at, events, counters)
		VALUES ($1::uuid, $2, $3, $4)
		ON CONFLICT (run_id) DO NOTHING
	`, id.String(), time.Now().UnixMicro(), events, c)
	if err != nil {
		return fmt.Errorf("insert run result: %w", err)
	}
	return nil
}

// InsertDepth writes the final depth profile of a run.
func (s *RunStore) InsertDepth(ctx context.Context, id uuid.UUID, bids, asks []model.Level) error {
	rows := depthRows(id, bids, asks)
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO simulated_depth (run_id, side, price, depth)
			VALUES ($1::uuid, $2, $3, $4)
			ON CONFLICT (run_id, side, price) DO NOTHING
		`, r.RunID, r.Side, r.Price, r.Depth)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert depth: %w", err)
		}
	}
	s.logger.Debug("depth profile written", "run_id", id.String(), "levels", len(rows))
	return nil
}

// InsertParameter stores calibrated parameters.
func (s *RunStore) InsertParameter(ctx context.Context, p model.Parameter) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal parameter: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO calibrations (calibrated_at, symbol, trading_days, parameters)
		VALUES ($1, $2, $3, $4)
	`, time.Now().UnixMicro(), p.Symbol, p.TradingDays, data)
	if err != nil {
		return fmt.Errorf("insert calibration: %w", err)
	}
	return nil
}

func depthRows(id uuid.UUID, bids, asks []model.Level) []depthRow {
	rows := make([]depthRow, 0, len(bids)+len(asks))
	runID := id.String()
	for _, l := range bids {
		rows = append(rows, depthRow{RunID: runID, Side: true, Price: l.Price, Depth: l.Volume})
	}
	for _, l := range asks {
		rows = append(rows, depthRow{RunID: runID, Side: false, Price: l.Price, Depth: l.Volume})
	}
	return rows
}
