// Package model defines shared data types used across the order book
// calibration and simulation pipeline.
//
// Conventions:
//   - Raw prices: integer LOBSTER units (dollars x 10,000), see PriceScale
//   - Ticks: integer multiples of the calibrated tick size (raw price / tick size)
//   - Times: float64 seconds after midnight for historical data, seconds since
//     start for simulated data
//   - Sizes: integer shares
package model
