package collector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"StockLens/internal/model"
)

// PostgresFetcher reads closes from a stock_prices table keyed by ticker and date.
type PostgresFetcher struct {
	db *sqlx.DB
}

// NewPostgresFetcher opens and pings the database behind dsn.
func NewPostgresFetcher(ctx context.Context, dsn string) (*PostgresFetcher, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresFetcher{db: db}, nil
}

func (f *PostgresFetcher) Name() string { return "postgres" }

type priceRow struct {
	Date  time.Time       `db:"date"`
	Close sql.NullFloat64 `db:"close"`
}

const selectPrices = `SELECT date, close FROM stock_prices
WHERE ticker = $1 AND date >= $2
ORDER BY date`

func (f *PostgresFetcher) FetchDailyBars(ctx context.Context, symbol string, start time.Time) ([]model.PriceBar, error) {
	var rows []priceRow
	if err := f.db.SelectContext(ctx, &rows, selectPrices, symbol, model.DayOf(start)); err != nil {
		return nil, fmt.Errorf("query stock_prices for %s: %w", symbol, err)
	}
	return barsFromRows(rows, start), nil
}

// barsFromRows drops NULL closes and normalizes the rest.
func barsFromRows(rows []priceRow, start time.Time) []model.PriceBar {
	bars := make([]model.PriceBar, 0, len(rows))
	for _, r := range rows {
		if !r.Close.Valid {
			continue
		}
		bars = append(bars, model.PriceBar{Date: r.Date, Close: r.Close.Float64})
	}
	return normalize(bars, start)
}

// Close releases the connection pool.
func (f *PostgresFetcher) Close() error {
	return f.db.Close()
}
