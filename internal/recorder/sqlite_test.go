package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/backtest"
	"StockLens/internal/model"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func sampleEvaluation() model.Evaluation {
	trades := []model.Trade{
		{EntryPrice: 100, ExitPrice: 110, EntryDate: day(2), ExitDate: day(9)},
		{EntryPrice: 105, ExitPrice: 100, EntryDate: day(12), ExitDate: day(20)},
	}
	withTrades := model.CaseResult{Trades: trades, Metrics: backtest.ComputeMetrics(trades)}
	empty := model.CaseResult{Trades: []model.Trade{}, Metrics: backtest.ComputeMetrics(nil)}
	return model.Evaluation{
		"YTD": {model.CaseMin: withTrades, model.CaseAverage: empty, model.CaseGreedy: empty},
		"1Y":  {model.CaseMin: empty, model.CaseAverage: withTrades, model.CaseGreedy: withTrades},
	}
}

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func count(t *testing.T, r *SQLiteRecorder, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, r.db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()

	run := &RunRecord{
		Symbol:     "SPY",
		Source:     "mock",
		AsOf:       day(20),
		Params:     model.DefaultBacktestParams(),
		Timeframes: map[string]time.Time{"YTD": day(1), "1Y": day(1).AddDate(-1, 0, 0)},
		Evaluation: sampleEvaluation(),
	}
	require.NoError(t, r.RecordRun(ctx, run))
	require.NotEmpty(t, run.ID)

	assert.Equal(t, 1, count(t, r, `SELECT COUNT(*) FROM backtest_runs WHERE id = ?`, run.ID))
	assert.Equal(t, 6, count(t, r, `SELECT COUNT(*) FROM case_metrics WHERE run_id = ?`, run.ID))
	assert.Equal(t, 6, count(t, r, `SELECT COUNT(*) FROM trades WHERE run_id = ?`, run.ID))
	assert.Equal(t, 3, count(t, r, `SELECT COUNT(*) FROM case_metrics WHERE run_id = ? AND annualized_return_pct IS NULL`, run.ID))

	var total float64
	require.NoError(t, r.db.QueryRow(`SELECT total_return_pct FROM case_metrics
		WHERE run_id = ? AND timeframe = 'YTD' AND case_name = 'min'`, run.ID).Scan(&total))
	assert.InDelta(t, (1.1*100.0/105.0-1)*100, total, 1e-9)
}

func TestSQLiteRecorder_DuplicateRunRollsBack(t *testing.T) {
	r := openTemp(t)
	ctx := context.Background()
	run := &RunRecord{ID: "fixed", Symbol: "SPY", AsOf: day(1), Evaluation: sampleEvaluation()}

	require.NoError(t, r.RecordRun(ctx, run))
	assert.Error(t, r.RecordRun(ctx, run))
	assert.Equal(t, 6, count(t, r, `SELECT COUNT(*) FROM case_metrics WHERE run_id = 'fixed'`))
}

func TestSQLiteRecorder_RecordAlert(t *testing.T) {
	r := openTemp(t)
	require.NoError(t, r.RecordAlert(context.Background(), &AlertEvent{
		Symbol: "QQQ", Kind: model.SignalBuy, BarDate: day(5), Close: 400, RSI: 28, MACDHist: 0.2,
	}))
	assert.Equal(t, 1, count(t, r, `SELECT COUNT(*) FROM signal_alerts WHERE symbol = 'QQQ' AND kind = 'BUY'`))
}

func TestSQLiteRecorder_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.RecordAlert(context.Background(), &AlertEvent{Symbol: "A", Kind: model.SignalSell, BarDate: day(1)}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 1, count(t, r, `SELECT COUNT(*) FROM signal_alerts`))
}

func TestNoopRecorder_AssignsID(t *testing.T) {
	run := &RunRecord{Symbol: "SPY"}
	require.NoError(t, NewNoopRecorder().RecordRun(context.Background(), run))
	assert.Len(t, run.ID, 36)
}
