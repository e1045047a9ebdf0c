package stats

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

// ErrNoCategories is returned when a categorical distribution has no mass.
var ErrNoCategories = errors.New("categorical distribution has no positive weight")

// Categorical draws keys with probability proportional to their weight.
type Categorical[K any] struct {
	keys []K
	cum  []float64
}

// NewCategorical builds a sampler over keys with the given weights.
func NewCategorical[K any](keys []K, weights []float64) (*Categorical[K], error) {
	if len(keys) != len(weights) {
		return nil, fmt.Errorf("categorical: %d keys but %d weights", len(keys), len(weights))
	}
	c := &Categorical[K]{
		keys: keys,
		cum:  make([]float64, len(weights)),
	}
	var acc float64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("categorical key %d weight %v: %w", i, w, ErrInvalidWeight)
		}
		acc += w
		c.cum[i] = acc
	}
	if acc <= 0 {
		return nil, ErrNoCategories
	}
	return c, nil
}

// Total returns the sum of all weights.
func (c *Categorical[K]) Total() float64 { return c.cum[len(c.cum)-1] }

// Pick maps u in [0, 1) onto a key index.
func (c *Categorical[K]) Pick(u float64) int {
	target := u * c.Total()
	i := sort.Search(len(c.cum), func(i int) bool { return c.cum[i] > target })
	if i == len(c.cum) {
		// u rounded onto the total; fall back to the last positive weight
		i = len(c.cum) - 1
		for i > 0 && c.cum[i] == c.cum[i-1] {
			i--
		}
	}
	return i
}

// Sample draws one key.
func (c *Categorical[K]) Sample(r *rand.Rand) K {
	return c.keys[c.Pick(r.Float64())]
}
