package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockLens/internal/backtest"
	"StockLens/internal/calculator"
	"StockLens/internal/collector"
	"StockLens/internal/logger"
	"StockLens/internal/model"
	"StockLens/internal/recorder"
	"StockLens/internal/strategy"
)

var (
	// ErrNoData means the price source returned nothing for the symbol.
	ErrNoData = errors.New("no price data")
	// ErrFetch wraps failures of the price source.
	ErrFetch = errors.New("price fetch failed")
)

// signalLookback is enough history for the slowest indicator to settle.
const signalLookback = 400 * 24 * time.Hour

// Report is the outcome of one backtest run.
type Report struct {
	RunID      string               `json:"run_id"`
	Symbol     string               `json:"symbol"`
	Source     string               `json:"source"`
	AsOf       time.Time            `json:"as_of"`
	Bars       int                  `json:"bars"`
	Timeframes map[string]time.Time `json:"timeframes"`
	Params     model.BacktestParams `json:"params"`
	Evaluation model.Evaluation     `json:"evaluation"`
}

// SignalSnapshot is the classified state of the latest bar.
type SignalSnapshot struct {
	Symbol     string             `json:"symbol"`
	Source     string             `json:"source"`
	Row        model.SignalRow    `json:"row"`
	PrevClose  float64            `json:"prev_close"`
	LastBuy    *time.Time         `json:"last_buy,omitempty"`
	LastSell   *time.Time         `json:"last_sell,omitempty"`
	Thresholds model.SignalParams `json:"thresholds"`
}

// Service fetches prices, runs the engine and records the outcome.
type Service struct {
	Fetcher    collector.Fetcher
	Recorder   recorder.Recorder
	Params     model.BacktestParams
	Timeframes []string
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewService wires a service; a nil recorder becomes a no-op.
func NewService(f collector.Fetcher, r recorder.Recorder, params model.BacktestParams, timeframes []string) *Service {
	if r == nil {
		r = recorder.NewNoopRecorder()
	}
	return &Service{Fetcher: f, Recorder: r, Params: params, Timeframes: timeframes}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) timeframeNames(names []string) []string {
	if len(names) > 0 {
		return names
	}
	if len(s.Timeframes) > 0 {
		return s.Timeframes
	}
	return backtest.DefaultTimeframes
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Backtest fetches enough history for the requested timeframes and evaluates it.
func (s *Service) Backtest(ctx context.Context, symbol string, timeframes []string) (*Report, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", calculator.ErrInvalidInput)
	}
	names := s.timeframeNames(timeframes)

	// Resolve against today first so unknown names fail before any fetch.
	probe, err := backtest.ResolveTimeframes(names, s.now())
	if err != nil {
		return nil, err
	}
	earliest := s.now()
	for _, start := range probe {
		if start.Before(earliest) {
			earliest = start
		}
	}
	// Slack for a latest bar that lags today.
	earliest = earliest.AddDate(0, 0, -14)

	op := logger.StartOperation(ctx, "analysis.backtest", "symbol", symbol, "source", s.Fetcher.Name())
	ctx = op.Context()

	prices, err := s.Fetcher.FetchDailyBars(ctx, symbol, earliest)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrFetch, symbol, err)
		op.EndWithError(err)
		return nil, err
	}

	report, err := s.evaluate(ctx, symbol, s.Fetcher.Name(), prices, names)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	op.End("bars", len(prices), "run_id", report.RunID)
	return report, nil
}

// EvaluatePrices runs the engine on caller-supplied prices. Timeframes are
// resolved against the latest bar.
func (s *Service) EvaluatePrices(ctx context.Context, symbol string, prices []model.PriceBar, timeframes []string) (*Report, error) {
	return s.evaluate(ctx, NormalizeSymbol(symbol), "inline", prices, timeframes)
}

func (s *Service) evaluate(ctx context.Context, symbol, source string, prices []model.PriceBar, timeframes []string) (*Report, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}
	if err := calculator.ValidatePrices(prices); err != nil {
		return nil, err
	}

	latest := prices[len(prices)-1].Date
	tf, err := backtest.ResolveTimeframes(s.timeframeNames(timeframes), latest)
	if err != nil {
		return nil, err
	}

	eval, err := backtest.Evaluate(ctx, prices, tf, s.Params)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Symbol:     symbol,
		Source:     source,
		AsOf:       latest,
		Bars:       len(prices),
		Timeframes: tf,
		Params:     s.Params,
		Evaluation: eval,
	}

	run := &recorder.RunRecord{
		Symbol:     symbol,
		Source:     source,
		AsOf:       latest,
		Params:     s.Params,
		Timeframes: tf,
		Evaluation: eval,
	}
	if err := s.Recorder.RecordRun(ctx, run); err != nil {
		logger.ErrorWithErr(ctx, "failed to record backtest run", err, "symbol", symbol)
	}
	report.RunID = run.ID

	logger.Info(ctx, "backtest evaluated",
		"symbol", symbol, "bars", len(prices), "timeframes", len(tf), "run_id", run.ID)
	return report, nil
}

// LatestSignal classifies the most recent bar of symbol.
func (s *Service) LatestSignal(ctx context.Context, symbol string) (*SignalSnapshot, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", calculator.ErrInvalidInput)
	}

	op := logger.StartOperation(ctx, "analysis.latest_signal", "symbol", symbol)
	ctx = op.Context()

	prices, err := s.Fetcher.FetchDailyBars(ctx, symbol, s.now().Add(-signalLookback))
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrFetch, symbol, err)
		op.EndWithError(err)
		return nil, err
	}
	if len(prices) == 0 {
		err := fmt.Errorf("%w for %s", ErrNoData, symbol)
		op.EndWithError(err)
		return nil, err
	}

	rows, err := calculator.ComputeIndicators(prices, s.Params.Signal)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	signals := strategy.ClassifySignals(rows, s.Params.Signal)

	snap := &SignalSnapshot{
		Symbol:     symbol,
		Source:     s.Fetcher.Name(),
		Row:        signals[len(signals)-1],
		Thresholds: s.Params.Signal,
	}
	if n := len(signals); n > 1 {
		snap.PrevClose = signals[n-2].Close
	}
	if idx := strategy.SignalIndices(signals, model.SignalBuy); len(idx) > 0 {
		d := signals[idx[len(idx)-1]].Date
		snap.LastBuy = &d
	}
	if idx := strategy.SignalIndices(signals, model.SignalSell); len(idx) > 0 {
		d := signals[idx[len(idx)-1]].Date
		snap.LastSell = &d
	}

	op.End("buy", snap.Row.BuySignal, "sell", snap.Row.SellSignal)
	return snap, nil
}
