// Package database manages the TimescaleDB connection pool that stores
// simulation runs and calibrations.
//
// Tables:
//   - calibrations: calibrated parameters per symbol and day set
//   - simulation_runs / simulation_results: run metadata and counters
//   - simulated_prices: best bid/ask changes (hypertable on sim_time)
//   - simulated_depth: final depth profile per run
package database
