package calculator

// SpanAlpha converts an EMA span N into its smoothing factor 2/(N+1).
func SpanAlpha(span int) float64 {
	return 2.0 / (float64(span) + 1.0)
}

// EMASeries is the recursive exponential moving average seeded with the first
// value: out[i] = alpha*x[i] + (1-alpha)*out[i-1].
func EMASeries(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}
