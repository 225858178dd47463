package market

import "math"

// VolatilityEstimator maintains a rolling window of mid prices and derives a
// normalized volatility scalar from the band width around the moving average.
// 1.0 means "typical" market width; the result is clamped to [minVol, maxVol].
type VolatilityEstimator struct {
	capacity   int
	window     int     // samples used per estimate
	bandK      float64 // STD multiplier for the band
	baseline   float64 // band width considered "typical", e.g. 0.02
	minVol     float64
	maxVol     float64
	prices     []float64
}

// NewVolatilityEstimator creates an estimator. capacity bounds the retained
// history; window is the number of recent samples each estimate uses.
func NewVolatilityEstimator(capacity, window int, bandK, baseline, minVol, maxVol float64) *VolatilityEstimator {
	if capacity < window {
		capacity = window
	}
	return &VolatilityEstimator{
		capacity: capacity,
		window:   window,
		bandK:    bandK,
		baseline: baseline,
		minVol:   minVol,
		maxVol:   maxVol,
		prices:   make([]float64, 0, capacity),
	}
}

// RecordPrice appends a mid price, evicting the oldest sample at capacity.
func (v *VolatilityEstimator) RecordPrice(price float64) {
	v.prices = append(v.prices, price)
	if len(v.prices) > v.capacity {
		v.prices = v.prices[1:]
	}
}

// SampleCount returns the number of retained prices.
func (v *VolatilityEstimator) SampleCount() int {
	return len(v.prices)
}

// Estimate returns the normalized volatility. With fewer than window samples,
// or a zero moving average, it returns the neutral value 1.0.
func (v *VolatilityEstimator) Estimate() float64 {
	if len(v.prices) < v.window {
		return 1.0
	}
	recent := v.prices[len(v.prices)-v.window:]

	var sum float64
	for _, p := range recent {
		sum += p
	}
	sma := sum / float64(len(recent))
	if sma == 0 {
		return 1.0
	}

	var sqDiff float64
	for _, p := range recent {
		d := p - sma
		sqDiff += d * d
	}
	std := math.Sqrt(sqDiff / float64(len(recent)))

	// Band width: (upper - lower) / SMA where upper/lower = SMA ± k*STD.
	bandWidth := (2 * v.bandK * std) / sma

	vol := 1.0
	if v.baseline > 0 {
		vol = bandWidth / v.baseline
	}
	return v.clamp(vol)
}

func (v *VolatilityEstimator) clamp(x float64) float64 {
	if x < v.minVol {
		return v.minVol
	}
	if x > v.maxVol {
		return v.maxVol
	}
	return x
}
