package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. Satisfied by *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema lists the statements that create the tables used by the writers.
// Timestamps are microseconds since the Unix epoch; prices are ticks.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS calibrations (
		calibrated_at BIGINT NOT NULL,
		symbol        TEXT   NOT NULL,
		trading_days  TEXT[] NOT NULL,
		parameters    JSONB  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_runs (
		run_id     UUID PRIMARY KEY,
		symbol     TEXT   NOT NULL,
		seed       BIGINT NOT NULL,
		duration   DOUBLE PRECISION NOT NULL,
		started_at BIGINT NOT NULL,
		parameters JSONB  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_results (
		run_id      UUID PRIMARY KEY REFERENCES simulation_runs (run_id),
		finished_at BIGINT NOT NULL,
		events      BIGINT NOT NULL,
		counters    JSONB  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS simulated_prices (
		run_id   UUID             NOT NULL,
		sim_time DOUBLE PRECISION NOT NULL,
		bid      BIGINT           NOT NULL,
		ask      BIGINT           NOT NULL,
		spread   BIGINT           NOT NULL,
		PRIMARY KEY (run_id, sim_time)
	)`,
	`CREATE TABLE IF NOT EXISTS simulated_depth (
		run_id UUID    NOT NULL,
		side   BOOLEAN NOT NULL,
		price  BIGINT  NOT NULL,
		depth  BIGINT  NOT NULL,
		PRIMARY KEY (run_id, side, price)
	)`,
}

// EnsureSchema creates missing tables.
func EnsureSchema(ctx context.Context, db Execer) error {
	for i, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
