// Package stats provides the discrete distributions used to calibrate and
// sample the order book model.
//
// A Distribution maps numeric keys (typically a distance in price units) to
// non-negative weights (volume or counts). Distributions are immutable: Scale
// and Divide return new instances, and derived views are cached.
//
// Random draws always go through an explicitly passed *rand.Rand so runs can
// be reproduced from a seed.
package stats
