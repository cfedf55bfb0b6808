package backtest

import (
	"math"

	"StockLens/internal/model"
)

// ComputeMetrics summarizes trades compounded in list order from 1.0.
func ComputeMetrics(trades []model.Trade) model.Metrics {
	if len(trades) == 0 {
		return model.Metrics{}
	}

	equity := make([]float64, 1, len(trades)+1)
	equity[0] = 1.0
	var wins, sumReturn, sumDays float64
	for _, t := range trades {
		r := t.Return()
		sumReturn += r
		if r > 0 {
			wins++
		}
		sumDays += float64(t.HoldingDays())
		equity = append(equity, equity[len(equity)-1]*(1+r))
	}

	n := float64(len(trades))
	total := equity[len(equity)-1] - 1
	avgDays := sumDays / n

	m := model.Metrics{
		NumTrades:         len(trades),
		TotalReturnPct:    total * 100,
		WinRate:           wins / n,
		AvgReturnPerTrade: sumReturn / n,
		MaxDrawdownPct:    maxDrawdown(equity) * 100,
		AvgHoldingDays:    &avgDays,
	}

	days := model.DaysBetween(trades[0].EntryDate, trades[len(trades)-1].ExitDate)
	if days >= 1 {
		ann := (math.Pow(1+total, 365.0/float64(days)) - 1) * 100
		m.AnnualizedReturnPct = &ann
	}
	return m
}

// maxDrawdown returns the deepest fall from a running peak as a fraction (<= 0).
func maxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range equity {
		peak = math.Max(peak, v)
		if dd := (v - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}
