// Package cache persists per-day calibration results in a local Pebble store.
//
// Calibrating a trading day means reading and classifying every message of
// that day, so results are keyed by symbol, date and calibration band and
// reused across runs of the calibrate command.
package cache
