package recorder

import (
	"context"
	"time"

	"StockLens/internal/model"
)

// RunRecord is one completed evaluation of a symbol.
type RunRecord struct {
	ID         string // generated when empty
	Symbol     string
	Source     string
	AsOf       time.Time
	Params     model.BacktestParams
	Timeframes map[string]time.Time
	Evaluation model.Evaluation
}

// AlertEvent records a signal notification that was sent.
type AlertEvent struct {
	Symbol   string
	Kind     model.SignalKind
	BarDate  time.Time
	Close    float64
	RSI      float64
	MACDHist float64
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordRun(ctx context.Context, run *RunRecord) error
	RecordAlert(ctx context.Context, evt *AlertEvent) error
	Close() error
}
