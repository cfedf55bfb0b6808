package strategy

import (
	"time"

	"StockLens/internal/model"
)

// PairingOptions controls how clusters are turned into trades.
type PairingOptions struct {
	ClusterGapDays  int
	AvgQuantile     float64
	GreedyQuantile  float64
	SkipOverlapping bool
}

// OptionsFrom extracts the pairing knobs from backtest parameters.
func OptionsFrom(p model.BacktestParams) PairingOptions {
	return PairingOptions{
		ClusterGapDays:  p.ClusterGapDays,
		AvgQuantile:     p.AvgQuantile,
		GreedyQuantile:  p.GreedyQuantile,
		SkipOverlapping: p.SkipOverlapping,
	}
}

// BuildTrades pairs every buy cluster with the first unused sell cluster that
// starts after the chosen entry. When no such sell cluster remains the trade
// is closed at the last bar and later buys close there too.
func BuildTrades(rows []model.SignalRow, c model.Case, opts PairingOptions) []model.Trade {
	trades := []model.Trade{}
	if len(rows) == 0 {
		return trades
	}

	buys := SignalIndices(rows, model.SignalBuy)
	if len(buys) == 0 {
		return trades
	}
	sells := SignalIndices(rows, model.SignalSell)

	dates := make([]time.Time, len(rows))
	for i, r := range rows {
		dates[i] = r.Date
	}
	buyClusters := ClusterByDate(dates, buys, opts.ClusterGapDays)
	sellClusters := ClusterByDate(dates, sells, opts.ClusterGapDays)

	q := QuantileFor(c, opts.AvgQuantile, opts.GreedyQuantile)
	last := rows[len(rows)-1]
	ptr := 0

	for _, bc := range buyClusters {
		entryIdx := SelectIndex(bc, q)
		if entryIdx < 0 {
			continue
		}
		entry := rows[entryIdx]
		if opts.SkipOverlapping && len(trades) > 0 && entry.Date.Before(trades[len(trades)-1].ExitDate) {
			continue
		}

		exit := last
		matched := false
		for i := ptr; i < len(sellClusters); i++ {
			sc := sellClusters[i]
			if len(sc) == 0 || !rows[sc[0]].Date.After(entry.Date) {
				continue
			}
			exit = rows[SelectIndex(sc, q)]
			ptr = i + 1
			matched = true
			break
		}
		if !matched {
			ptr = len(sellClusters)
		}

		trades = append(trades, model.Trade{
			EntryPrice: entry.Close,
			ExitPrice:  exit.Close,
			EntryDate:  entry.Date,
			ExitDate:   exit.Date,
		})
	}
	return trades
}

// Overlaps returns the positions k where trade k opens before trade k-1 closed.
func Overlaps(trades []model.Trade) []int {
	var out []int
	for k := 1; k < len(trades); k++ {
		if trades[k-1].ExitDate.After(trades[k].EntryDate) {
			out = append(out, k)
		}
	}
	return out
}
