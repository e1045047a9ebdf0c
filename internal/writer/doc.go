// Package writer persists simulation output to TimescaleDB.
//
// Writers:
//   - Price writer: best bid/ask changes of a run (simulated_prices),
//     consumed from a feed buffer and inserted in batches
//   - Run store: run metadata, final depth profile (simulated_depth) and
//     calibrated parameters (calibrations)
//
// All writers use append-only semantics (never update, only insert).
// Prices are stored in ticks; the run's parameter row carries the tick size.
package writer
