package backtest

import (
	"sort"
	"time"

	"StockLens/internal/model"
)

// BuildEquityCurve renders trades as a step function ordered by exit date.
// Each exit is preceded by a point one day earlier at the old value so the
// step is drawn square. Without trades it returns a flat daily line over
// [start, end], or an empty curve when either bound is missing.
func BuildEquityCurve(trades []model.Trade, start, end *time.Time) model.EquityCurve {
	curve := model.EquityCurve{Dates: []time.Time{}, Values: []float64{}}
	add := func(d time.Time, v float64) {
		curve.Dates = append(curve.Dates, d)
		curve.Values = append(curve.Values, v)
	}

	if len(trades) == 0 {
		if start == nil || end == nil {
			return curve
		}
		for d := *start; !d.After(*end); d = d.AddDate(0, 0, 1) {
			add(d, 1.0)
		}
		return curve
	}

	sorted := make([]model.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitDate.Before(sorted[j].ExitDate)
	})

	value := 1.0
	if start != nil {
		add(*start, value)
	} else {
		add(sorted[0].EntryDate, value)
	}

	for _, t := range sorted {
		before := t.ExitDate.AddDate(0, 0, -1)
		if before.After(curve.Dates[len(curve.Dates)-1]) {
			add(before, value)
		}
		value *= 1 + t.Return()
		add(t.ExitDate, value)
	}

	if end != nil && end.After(curve.Dates[len(curve.Dates)-1]) {
		add(*end, value)
	}
	return curve
}
