package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"StockLens/internal/backtest"
	"StockLens/internal/logger"
	"StockLens/internal/model"
)

// SQLiteRecorder persists runs and alerts to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(context.Background(), "sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id          TEXT PRIMARY KEY,
			symbol      TEXT NOT NULL,
			source      TEXT,
			as_of       INTEGER NOT NULL,
			created_at  INTEGER NOT NULL,
			params_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON backtest_runs(symbol, created_at)`,

		`CREATE TABLE IF NOT EXISTS case_metrics (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id                TEXT NOT NULL REFERENCES backtest_runs(id),
			timeframe             TEXT NOT NULL,
			timeframe_start       INTEGER,
			case_name             TEXT NOT NULL,
			num_trades            INTEGER,
			total_return_pct      REAL,
			win_rate              REAL,
			avg_return_per_trade  REAL,
			annualized_return_pct REAL,
			max_drawdown_pct      REAL,
			avg_holding_days      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_run ON case_metrics(run_id)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL REFERENCES backtest_runs(id),
			timeframe   TEXT NOT NULL,
			case_name   TEXT NOT NULL,
			seq         INTEGER NOT NULL,
			entry_date  INTEGER,
			exit_date   INTEGER,
			entry_price REAL,
			exit_price  REAL,
			return_pct  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id)`,

		`CREATE TABLE IF NOT EXISTS signal_alerts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			kind      TEXT NOT NULL,
			bar_date  INTEGER,
			close     REAL,
			rsi       REAL,
			macd_hist REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON signal_alerts(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes the run, its per-case metrics and every trade in one
// transaction.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO backtest_runs
		(id, symbol, source, as_of, created_at, params_json)
		VALUES (?,?,?,?,?,?)`,
		run.ID, run.Symbol, run.Source, run.AsOf.Unix(), time.Now().Unix(), string(params),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, tf := range backtest.OrderedNames(run.Evaluation) {
		var tfStart sql.NullInt64
		if s, ok := run.Timeframes[tf]; ok {
			tfStart = sql.NullInt64{Int64: s.Unix(), Valid: true}
		}
		for _, c := range model.Cases() {
			res, ok := run.Evaluation[tf][c]
			if !ok {
				continue
			}
			m := res.Metrics
			if _, err := tx.ExecContext(ctx, `INSERT INTO case_metrics
				(run_id, timeframe, timeframe_start, case_name, num_trades, total_return_pct,
				 win_rate, avg_return_per_trade, annualized_return_pct, max_drawdown_pct, avg_holding_days)
				VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
				run.ID, tf, tfStart, string(c), m.NumTrades, m.TotalReturnPct,
				m.WinRate, m.AvgReturnPerTrade, nullFloat(m.AnnualizedReturnPct), m.MaxDrawdownPct,
				nullFloat(m.AvgHoldingDays),
			); err != nil {
				return fmt.Errorf("insert metrics %s/%s: %w", tf, c, err)
			}

			for i, t := range res.Trades {
				if _, err := tx.ExecContext(ctx, `INSERT INTO trades
					(run_id, timeframe, case_name, seq, entry_date, exit_date, entry_price, exit_price, return_pct)
					VALUES (?,?,?,?,?,?,?,?,?)`,
					run.ID, tf, string(c), i, t.EntryDate.Unix(), t.ExitDate.Unix(),
					t.EntryPrice, t.ExitPrice, t.Return()*100,
				); err != nil {
					return fmt.Errorf("insert trade %s/%s #%d: %w", tf, c, i, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordAlert(ctx context.Context, evt *AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO signal_alerts
		(timestamp, symbol, kind, bar_date, close, rsi, macd_hist)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, string(evt.Kind), evt.BarDate.Unix(),
		evt.Close, evt.RSI, evt.MACDHist,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	logger.Info(context.Background(), "closing sqlite recorder")
	return r.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
