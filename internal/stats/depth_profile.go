package stats

import (
	"fmt"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/model"
)

// AverageDepthProfile returns the time-averaged depth of one book side as a
// function of the distance (raw price units) to the best opposite quote.
//
// Snapshot k is weighted by how long it was held, i.e. until event k+1. Bid
// and ask depth at the same distance are averaged, so summing the profile over
// a band gives the average depth in that band on a single side. Snapshots with
// an empty side carry no opposite quote and are skipped.
func AverageDepthProfile(day *model.TradingDay) (*Distribution, error) {
	n := day.Len()
	if n < 2 {
		return nil, fmt.Errorf("depth profile of %d snapshots: %w", n, ErrEmptyDistribution)
	}

	acc := make(map[float64]float64)
	var held float64
	for k := 0; k < n-1; k++ {
		dt := day.Events[k+1].Time - day.Events[k].Time
		if dt <= 0 {
			continue
		}
		held += dt

		snap := day.Snapshots[k]
		bestBid, okBid := snap.BestBid()
		bestAsk, okAsk := snap.BestAsk()
		if !okBid || !okAsk {
			continue
		}
		for _, lvl := range snap.Bids {
			acc[float64(bestAsk-lvl.Price)] += dt * float64(lvl.Volume)
		}
		for _, lvl := range snap.Asks {
			acc[float64(lvl.Price-bestBid)] += dt * float64(lvl.Volume)
		}
	}
	if held <= 0 {
		return nil, fmt.Errorf("depth profile over zero duration: %w", ErrEmptyDistribution)
	}

	for k := range acc {
		acc[k] /= 2 * held
	}
	return NewDistribution(acc)
}
