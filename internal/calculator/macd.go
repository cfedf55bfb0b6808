package calculator

// Standard MACD spans.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACD returns the MACD line (fast EMA minus slow EMA), its signal EMA and
// the histogram.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := EMASeries(closes, SpanAlpha(fast))
	emaSlow := EMASeries(closes, SpanAlpha(slow))
	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig = EMASeries(line, SpanAlpha(signal))
	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}
