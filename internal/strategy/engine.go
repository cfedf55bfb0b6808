package strategy

import (
	"math"

	"StockLens/internal/model"
)

// conditions are the three indicator checks evaluated on each side of a bar.
type conditions struct {
	band, rsi, macd bool
}

func (c conditions) all() bool { return c.band && c.rsi && c.macd }
func (c conditions) any() bool { return c.band || c.rsi || c.macd }

func (c conditions) votes() int {
	n := 0
	for _, ok := range []bool{c.band, c.rsi, c.macd} {
		if ok {
			n++
		}
	}
	return n
}

// ClassifySignals turns indicator rows into buy/sell flags.
//
// With RequireAll, a buy needs price under the lower band, RSI under the buy
// threshold and a MACD histogram crossing up through the threshold; a sell
// needs any of price over the upper band, RSI over the sell threshold or a
// histogram under the threshold. Without it both sides take a 2-of-3 vote.
// Comparisons against NaN are false, so missing indicators never fire.
func ClassifySignals(rows []model.IndicatorRow, p model.SignalParams) []model.SignalRow {
	out := make([]model.SignalRow, len(rows))
	prevHist := 0.0
	for i, r := range rows {
		thr := p.MACDHistThreshold
		buy := conditions{
			band: r.Close < r.BBLower,
			rsi:  r.RSI < p.RSIBuyThreshold,
			macd: r.MACDHist > thr && prevHist <= thr,
		}
		sell := conditions{
			band: r.Close > r.BBUpper,
			rsi:  r.RSI > p.RSISellThreshold,
			macd: r.MACDHist < thr,
		}

		row := model.SignalRow{IndicatorRow: r}
		if p.RequireAll {
			row.BuySignal = buy.all()
			row.SellSignal = sell.any()
		} else {
			row.BuySignal = buy.votes() >= 2
			row.SellSignal = sell.votes() >= 2
		}
		out[i] = row
		prevHist = r.MACDHist
		if math.IsNaN(prevHist) {
			prevHist = 0
		}
	}
	return out
}

// SignalIndices returns the row positions flagged with the given kind.
func SignalIndices(rows []model.SignalRow, kind model.SignalKind) []int {
	var idx []int
	for i, r := range rows {
		if (kind == model.SignalBuy && r.BuySignal) || (kind == model.SignalSell && r.SellSignal) {
			idx = append(idx, i)
		}
	}
	return idx
}
