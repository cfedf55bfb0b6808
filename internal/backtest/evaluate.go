package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"StockLens/internal/calculator"
	"StockLens/internal/logger"
	"StockLens/internal/model"
	"StockLens/internal/strategy"
)

// Evaluate runs every strategy case over each timeframe. A timeframe covers
// the bars dated on or after its start; signals are recomputed on that slice.
// The series is validated once and any problem aborts the whole evaluation.
func Evaluate(ctx context.Context, prices []model.PriceBar, timeframes map[string]time.Time, p model.BacktestParams) (model.Evaluation, error) {
	if err := ValidateParams(p); err != nil {
		return nil, err
	}
	if err := calculator.ValidatePrices(prices); err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	result := make(model.Evaluation, len(timeframes))

	for name, start := range timeframes {
		wg.Add(1)
		go func(name string, start time.Time) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			tr, err := evaluateTimeframe(prices, start, p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("timeframe %s: %w", name, err)
				}
				return
			}
			result[name] = tr
			logger.Debug(ctx, "timeframe evaluated", "timeframe", name, "start", start.Format("2006-01-02"))
		}(name, start)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}

// ValidateParams rejects knobs the engine cannot work with.
func ValidateParams(p model.BacktestParams) error {
	if p.Signal.BBWindow < 1 {
		return fmt.Errorf("%w: bb_window must be >= 1, got %d", calculator.ErrInvalidInput, p.Signal.BBWindow)
	}
	if p.ClusterGapDays < 0 {
		return fmt.Errorf("%w: cluster_gap_days must be >= 0, got %d", calculator.ErrInvalidInput, p.ClusterGapDays)
	}
	return nil
}

func evaluateTimeframe(prices []model.PriceBar, start time.Time, p model.BacktestParams) (model.TimeframeResult, error) {
	sub := sliceFrom(prices, start)
	tr := make(model.TimeframeResult, len(model.Cases()))
	if len(sub) == 0 {
		for _, c := range model.Cases() {
			tr[c] = model.CaseResult{
				Trades:  []model.Trade{},
				Metrics: ComputeMetrics(nil),
				Equity:  model.EquityCurve{Dates: []time.Time{}, Values: []float64{}},
			}
		}
		return tr, nil
	}

	rows, err := calculator.ComputeIndicators(sub, p.Signal)
	if err != nil {
		return nil, err
	}
	signals := strategy.ClassifySignals(rows, p.Signal)
	opts := strategy.OptionsFrom(p)
	end := sub[len(sub)-1].Date

	for _, c := range model.Cases() {
		trades := strategy.BuildTrades(signals, c, opts)
		tr[c] = model.CaseResult{
			Trades:  trades,
			Metrics: ComputeMetrics(trades),
			Equity:  BuildEquityCurve(trades, &start, &end),
		}
	}
	return tr, nil
}

// sliceFrom returns the ascending bars dated on or after start.
func sliceFrom(prices []model.PriceBar, start time.Time) []model.PriceBar {
	i := sort.Search(len(prices), func(i int) bool {
		return !prices[i].Date.Before(start)
	})
	return prices[i:]
}
