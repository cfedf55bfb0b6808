package collector

import (
	"context"
	"math"
	"sort"
	"time"

	"StockLens/internal/model"
)

// Fetcher loads daily closes for one symbol.
type Fetcher interface {
	// FetchDailyBars returns ascending bars dated on or after start.
	FetchDailyBars(ctx context.Context, symbol string, start time.Time) ([]model.PriceBar, error)
	Name() string
}

// normalize truncates dates to UTC midnight, drops unusable closes and bars
// before start, sorts ascending and keeps the last bar seen for each day.
func normalize(bars []model.PriceBar, start time.Time) []model.PriceBar {
	start = model.DayOf(start)
	out := make([]model.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Date.IsZero() || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			continue
		}
		b.Date = model.DayOf(b.Date)
		if b.Date.Before(start) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}
