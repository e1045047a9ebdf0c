package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"
)

var (
	ErrEmptyDistribution = errors.New("distribution has no weight")
	ErrInvalidWeight     = errors.New("weight must be finite and non-negative")
	ErrQuantileRange     = errors.New("quantile must be within [0, 1]")
)

// Distribution is an immutable weighted distribution over sorted keys.
type Distribution struct {
	keys    []float64
	weights []float64
	total   float64

	cdfOnce sync.Once
	cum     []float64 // cum[i] = sum of weights[0..i]

	pmfOnce sync.Once
	pmf     map[float64]float64
}

// NewDistribution builds a distribution from key -> weight pairs.
// Zero weights are kept as keys; negative or non-finite weights are rejected.
func NewDistribution(weights map[float64]float64) (*Distribution, error) {
	keys := make([]float64, 0, len(weights))
	for k, w := range weights {
		if math.IsNaN(k) || math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("key %v weight %v: %w", k, w, ErrInvalidWeight)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	d := &Distribution{
		keys:    keys,
		weights: make([]float64, len(keys)),
	}
	for i, k := range keys {
		d.weights[i] = weights[k]
		d.total += weights[k]
	}
	if d.total <= 0 {
		return nil, ErrEmptyDistribution
	}
	return d, nil
}

// Len returns the number of keys.
func (d *Distribution) Len() int { return len(d.keys) }

// Total returns the sum of all weights.
func (d *Distribution) Total() float64 { return d.total }

// Keys returns the keys in ascending order.
func (d *Distribution) Keys() []float64 { return slices.Clone(d.keys) }

// Min returns the smallest key.
func (d *Distribution) Min() float64 { return d.keys[0] }

// Max returns the largest key.
func (d *Distribution) Max() float64 { return d.keys[len(d.keys)-1] }

// Weight returns the raw weight stored at key (0 if absent).
func (d *Distribution) Weight(key float64) float64 {
	i, ok := slices.BinarySearch(d.keys, key)
	if !ok {
		return 0
	}
	return d.weights[i]
}

// Probability returns weight(key) / total weight.
func (d *Distribution) Probability(key float64) float64 {
	d.pmfOnce.Do(func() {
		d.pmf = make(map[float64]float64, len(d.keys))
		for i, k := range d.keys {
			d.pmf[k] = d.weights[i] / d.total
		}
	})
	return d.pmf[key]
}

func (d *Distribution) cumulative() []float64 {
	d.cdfOnce.Do(func() {
		d.cum = make([]float64, len(d.weights))
		var acc float64
		for i, w := range d.weights {
			acc += w
			d.cum[i] = acc
		}
	})
	return d.cum
}

// CDF returns the cumulative weight of all keys <= key. The value is not
// normalized: CDF(Max()) == Total().
func (d *Distribution) CDF(key float64) float64 {
	cum := d.cumulative()
	i := sort.Search(len(d.keys), func(i int) bool { return d.keys[i] > key })
	if i == 0 {
		return 0
	}
	return cum[i-1]
}

// Quantile returns the smallest key whose cumulative weight reaches q*Total.
// Quantile(0) is the first key and Quantile(1) the last.
func (d *Distribution) Quantile(q float64) (float64, error) {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, fmt.Errorf("quantile %v: %w", q, ErrQuantileRange)
	}
	last := len(d.keys) - 1
	switch q {
	case 0:
		return d.keys[0], nil
	case 1:
		return d.keys[last], nil
	}

	cum := d.cumulative()
	target := q * d.total
	i := sort.Search(len(cum), func(i int) bool { return cum[i] >= target })
	if i > last {
		i = last
	}
	return d.keys[i], nil
}

// Moment returns the n-th raw moment sum(key^n * p(key)).
func (d *Distribution) Moment(n int) float64 {
	var m float64
	for i, k := range d.keys {
		m += math.Pow(k, float64(n)) * d.weights[i]
	}
	return m / d.total
}

// Mean returns the first moment.
func (d *Distribution) Mean() float64 { return d.Moment(1) }

// Variance returns Moment(2) - Mean()^2.
func (d *Distribution) Variance() float64 {
	mean := d.Mean()
	return d.Moment(2) - mean*mean
}

// Sum returns the total weight of keys in [lo, hi].
func (d *Distribution) Sum(lo, hi float64) float64 {
	var s float64
	for i, k := range d.keys {
		if k < lo {
			continue
		}
		if k > hi {
			break
		}
		s += d.weights[i]
	}
	return s
}

// Scale returns a new distribution with every key multiplied by scaleKey and
// every weight by scaleWeight. Keys that collide after scaling are merged.
func (d *Distribution) Scale(scaleKey, scaleWeight float64) (*Distribution, error) {
	out := make(map[float64]float64, len(d.keys))
	for i, k := range d.keys {
		out[k*scaleKey] += d.weights[i] * scaleWeight
	}
	return NewDistribution(out)
}

// Divide returns the element-wise ratio of weights at keys present in both
// distributions. Keys absent from other, or with zero weight there, are dropped.
func (d *Distribution) Divide(other *Distribution) (*Distribution, error) {
	out := make(map[float64]float64)
	for i, k := range d.keys {
		w := other.Weight(k)
		if w == 0 {
			continue
		}
		out[k] = d.weights[i] / w
	}
	return NewDistribution(out)
}
