package calculator

// BollingerK is the band width in standard deviations.
const BollingerK = 2.0

// Bollinger returns the middle, upper and lower bands over a trailing window.
func Bollinger(closes []float64, window int, k float64) (mid, upper, lower []float64) {
	mid = SMASeries(closes, window)
	sd := StdDevSeries(closes, window)
	upper = make([]float64, len(closes))
	lower = make([]float64, len(closes))
	for i := range closes {
		upper[i] = mid[i] + k*sd[i]
		lower[i] = mid[i] - k*sd[i]
	}
	return mid, upper, lower
}
