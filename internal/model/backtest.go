package model

import "time"

// Case selects which member of a signal cluster is acted on.
type Case string

const (
	CaseMin     Case = "min"
	CaseAverage Case = "average"
	CaseGreedy  Case = "greedy"
)

// Cases returns every strategy case in report order.
func Cases() []Case {
	return []Case{CaseMin, CaseAverage, CaseGreedy}
}

// BacktestParams bundles the signal thresholds with the clustering knobs.
type BacktestParams struct {
	Signal         SignalParams `json:"signal" yaml:"signal"`
	ClusterGapDays int          `json:"cluster_gap_days" yaml:"cluster_gap_days"`
	AvgQuantile    float64      `json:"avg_quantile" yaml:"avg_quantile"`
	GreedyQuantile float64      `json:"greedy_quantile" yaml:"greedy_quantile"`
	// SkipOverlapping drops buy clusters whose entry precedes the previous
	// trade's exit. Off by default to keep the historical trade lists.
	SkipOverlapping bool `json:"skip_overlapping" yaml:"skip_overlapping"`
}

// DefaultBacktestParams returns the dashboard defaults.
func DefaultBacktestParams() BacktestParams {
	return BacktestParams{
		Signal:         DefaultSignalParams(),
		ClusterGapDays: 3,
		AvgQuantile:    0.5,
		GreedyQuantile: 0.75,
	}
}

// Trade is one round trip from a buy cluster to a sell cluster (or the last bar).
type Trade struct {
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
}

// Return is the simple return of the trade.
func (t Trade) Return() float64 {
	return t.ExitPrice/t.EntryPrice - 1
}

// HoldingDays is the whole number of days the position was held.
func (t Trade) HoldingDays() int {
	return DaysBetween(t.EntryDate, t.ExitDate)
}

// Metrics summarizes a trade list.
type Metrics struct {
	NumTrades           int      `json:"num_trades"`
	TotalReturnPct      float64  `json:"total_return_pct"`
	WinRate             float64  `json:"win_rate"`
	AvgReturnPerTrade   float64  `json:"avg_return_per_trade"`
	AnnualizedReturnPct *float64 `json:"annualized_return_pct"`
	MaxDrawdownPct      float64  `json:"max_drawdown_pct"`
	AvgHoldingDays      *float64 `json:"avg_holding_days"`
}

// EquityCurve is a step function of compounded equity starting at 1.0.
type EquityCurve struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of points on the curve.
func (e EquityCurve) Len() int { return len(e.Dates) }

// CaseResult is the outcome of one (timeframe, case) run.
type CaseResult struct {
	Trades  []Trade     `json:"trades"`
	Metrics Metrics     `json:"metrics"`
	Equity  EquityCurve `json:"equity"`
}

// TimeframeResult holds every case for one timeframe.
type TimeframeResult map[Case]CaseResult

// Evaluation maps timeframe names to their results.
type Evaluation map[string]TimeframeResult
