package collector

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"StockLens/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.PriceBar
	Err   error
	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, start time.Time) ([]model.PriceBar, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return normalize(m.Bars, start), nil
	}
	return generateMockBars(m.Price, start, model.DayOf(time.Now())), nil
}

// Calls reports how many times FetchDailyBars ran.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

// generateMockBars draws an oscillating weekday series between start and end.
func generateMockBars(basePrice float64, start, end time.Time) []model.PriceBar {
	if basePrice <= 0 {
		basePrice = 100
	}
	var bars []model.PriceBar
	i := 0
	for d := model.DayOf(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		x := float64(i)
		p := basePrice * (1 + 0.12*math.Sin(x/11) + 0.03*math.Sin(x*1.3) + 0.0004*x)
		bars = append(bars, model.PriceBar{Date: d, Close: p})
		i++
	}
	return bars
}
