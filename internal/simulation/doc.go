// Package simulation runs the Smith-Farmer zero-intelligence order flow model
// as a continuous-time discrete-event simulation.
//
// Six independent Poisson processes compete at every step:
//   - market buy / market sell, each at rate mu
//   - limit buy / limit sell, each at rate alpha*L (uniform over L ticks)
//   - cancel buy / cancel sell, each at rate delta times the depth within L
//     ticks of the own best quote
//
// The loop is strictly sequential: each event is fully applied to the book
// before the next waiting time is drawn. The random stream is injected and
// must not be shared with other runs.
package simulation
