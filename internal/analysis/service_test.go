package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/backtest"
	"StockLens/internal/calculator"
	"StockLens/internal/collector"
	"StockLens/internal/model"
	"StockLens/internal/recorder"
)

type failingRecorder struct{ runs int }

func (f *failingRecorder) RecordRun(_ context.Context, _ *recorder.RunRecord) error {
	f.runs++
	return errors.New("disk full")
}
func (f *failingRecorder) RecordAlert(_ context.Context, _ *recorder.AlertEvent) error { return nil }
func (f *failingRecorder) Close() error                                                { return nil }

func newTestService(f collector.Fetcher, r recorder.Recorder) *Service {
	return NewService(f, r, model.DefaultBacktestParams(), nil)
}

func TestService_Backtest(t *testing.T) {
	mock := &collector.MockFetcher{Price: 120}
	s := newTestService(mock, nil)

	report, err := s.Backtest(context.Background(), " spy ", nil)
	require.NoError(t, err)
	assert.Equal(t, "SPY", report.Symbol)
	assert.Equal(t, "mock", report.Source)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, mock.Calls())
	assert.Greater(t, report.Bars, 600)

	require.Len(t, report.Timeframes, len(backtest.DefaultTimeframes))
	for _, name := range backtest.DefaultTimeframes {
		tr, ok := report.Evaluation[name]
		require.True(t, ok, name)
		assert.Len(t, tr, 3)
		assert.False(t, report.Timeframes[name].After(report.AsOf))
	}
}

func TestService_BacktestUsesConfiguredTimeframes(t *testing.T) {
	s := newTestService(&collector.MockFetcher{Price: 50}, nil)
	s.Timeframes = []string{"5Y"}

	report, err := s.Backtest(context.Background(), "QQQ", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"5Y"}, backtest.OrderedNames(report.Evaluation))

	report, err = s.Backtest(context.Background(), "QQQ", []string{"1y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1Y"}, backtest.OrderedNames(report.Evaluation))
}

func TestService_BacktestErrors(t *testing.T) {
	ctx := context.Background()

	mock := &collector.MockFetcher{Price: 100}
	_, err := newTestService(mock, nil).Backtest(ctx, "SPY", []string{"6W"})
	assert.ErrorIs(t, err, backtest.ErrUnknownTimeframe)
	assert.Equal(t, 0, mock.Calls(), "unknown timeframes fail before fetching")

	_, err = newTestService(mock, nil).Backtest(ctx, "  ", nil)
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)

	_, err = newTestService(&collector.MockFetcher{Err: errors.New("timeout")}, nil).Backtest(ctx, "SPY", nil)
	assert.ErrorIs(t, err, ErrFetch)

	_, err = newTestService(&collector.MockFetcher{Bars: []model.PriceBar{}}, nil).Backtest(ctx, "SPY", nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestService_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &failingRecorder{}
	report, err := newTestService(&collector.MockFetcher{Price: 10}, rec).Backtest(context.Background(), "IWM", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.runs)
	assert.Empty(t, report.RunID)
}

func TestService_EvaluatePrices(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]model.PriceBar, 120)
	for i := range prices {
		prices[i] = model.PriceBar{Date: start.AddDate(0, 0, i), Close: 100 + float64(i%17)}
	}
	s := newTestService(nil, nil)

	report, err := s.EvaluatePrices(context.Background(), "abc", prices, []string{"YTD"})
	require.NoError(t, err)
	assert.Equal(t, "inline", report.Source)
	assert.Equal(t, start, report.Timeframes["YTD"])
	assert.Equal(t, prices[len(prices)-1].Date, report.AsOf)

	prices[5].Close = -1
	_, err = s.EvaluatePrices(context.Background(), "abc", prices, nil)
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)

	_, err = s.EvaluatePrices(context.Background(), "abc", nil, nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestService_LatestSignal(t *testing.T) {
	mock := &collector.MockFetcher{Price: 80}
	s := newTestService(mock, nil)

	snap, err := s.LatestSignal(context.Background(), "dia")
	require.NoError(t, err)
	assert.Equal(t, "DIA", snap.Symbol)
	assert.Equal(t, model.DefaultSignalParams(), snap.Thresholds)
	assert.Greater(t, snap.Row.Close, 0.0)
	assert.Greater(t, snap.PrevClose, 0.0)
	assert.GreaterOrEqual(t, snap.Row.RSI, 0.0)
	assert.LessOrEqual(t, snap.Row.RSI, 100.0)
	if snap.LastBuy != nil {
		assert.False(t, snap.LastBuy.After(snap.Row.Date))
	}

	_, err = newTestService(&collector.MockFetcher{Bars: []model.PriceBar{}}, nil).LatestSignal(context.Background(), "DIA")
	assert.ErrorIs(t, err, ErrNoData)
}
