package calculator

import "math"

// SMASeries returns the trailing simple moving average of values. The first
// window-1 entries average over however many values are available.
func SMASeries(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// StdDevSeries returns the trailing population standard deviation (ddof 0)
// over the same partial windows as SMASeries.
func StdDevSeries(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}
	for i := range values {
		start := max(0, i-window+1)
		n := float64(i - start + 1)
		mean := 0.0
		for j := start; j <= i; j++ {
			mean += values[j]
		}
		mean /= n
		ss := 0.0
		for j := start; j <= i; j++ {
			d := values[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / n)
	}
	return out
}
