package calculator

import "math"

// NeutralRSI is reported when the gain/loss ratio is undefined.
const NeutralRSI = 50.0

// RSISeries computes the Wilder-smoothed RSI for every bar (alpha = 1/period).
// The first bar has no delta and reads neutral; the smoothed averages are
// seeded with the first delta, so bar 1 already carries a value.
func RSISeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	if period < 1 {
		period = 1
	}
	alpha := 1.0 / float64(period)

	out[0] = NeutralRSI
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return NeutralRSI
	}
	rsi := 100.0 - 100.0/(1.0+avgGain/avgLoss)
	if math.IsNaN(rsi) {
		return NeutralRSI
	}
	return math.Max(0, math.Min(100, rsi))
}
