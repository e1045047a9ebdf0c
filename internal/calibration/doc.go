// Package calibration estimates the zero-intelligence model rates from
// historical trading days.
//
// Each event is classified as a limit order, a market order or a
// cancellation and measured against the best opposite quote of the book
// before the event. The time-averaged depth profile selects a price band
// (two quantiles) in which the rates are estimated. All rates are expressed
// in units of the characteristic order size and per side.
package calibration
