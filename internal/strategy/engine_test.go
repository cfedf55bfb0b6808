package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/model"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func d(n int) time.Time { return day0.AddDate(0, 0, n) }

// neutralRow sits inside the bands with a neutral RSI and a flat histogram.
func neutralRow(n int, close float64) model.IndicatorRow {
	return model.IndicatorRow{
		PriceBar: model.PriceBar{Date: d(n), Close: close},
		BBSMA:    close, BBUpper: close + 10, BBLower: close - 10,
		RSI: 50,
	}
}

func TestClassifySignals_RequireAll(t *testing.T) {
	p := model.DefaultSignalParams()

	buy := neutralRow(0, 80)
	buy.BBLower = 85
	buy.RSI = 20
	buy.MACDHist = 0.5 // previous hist defaults to 0, so this is a cross up

	nearly := neutralRow(1, 80)
	nearly.BBLower = 85
	nearly.RSI = 20
	nearly.MACDHist = 0.7 // already above the threshold on the prior bar

	sell := neutralRow(2, 100)
	sell.RSI = 75
	sell.MACDHist = 0.7

	got := ClassifySignals([]model.IndicatorRow{buy, nearly, sell}, p)
	require.Len(t, got, 3)
	assert.True(t, got[0].BuySignal)
	assert.False(t, got[0].SellSignal)
	assert.False(t, got[1].BuySignal)
	assert.False(t, got[1].SellSignal)
	assert.False(t, got[2].BuySignal)
	assert.True(t, got[2].SellSignal, "a single overbought reading is enough to sell")
}

func TestClassifySignals_Majority(t *testing.T) {
	p := model.DefaultSignalParams()
	p.RequireAll = false

	twoOfThree := neutralRow(0, 80)
	twoOfThree.BBLower = 85
	twoOfThree.RSI = 20
	twoOfThree.MACDHist = -1

	oneSell := neutralRow(1, 120)
	oneSell.BBUpper = 110
	oneSell.MACDHist = -1 // bearish histogram plus the band break: two votes

	single := neutralRow(2, 100)
	single.RSI = 80
	single.MACDHist = 1

	got := ClassifySignals([]model.IndicatorRow{twoOfThree, oneSell, single}, p)
	assert.True(t, got[0].BuySignal)
	assert.False(t, got[0].SellSignal, "only the histogram votes to sell")
	assert.True(t, got[1].SellSignal)
	assert.False(t, got[2].SellSignal)
	assert.False(t, got[2].BuySignal)
}

func TestClassifySignals_NaNNeverFires(t *testing.T) {
	nan := math.NaN()
	row := model.IndicatorRow{
		PriceBar: model.PriceBar{Date: d(0), Close: 10},
		BBSMA:    nan, BBUpper: nan, BBLower: nan,
		RSI: nan, MACD: nan, MACDSignal: nan, MACDHist: nan,
	}
	for _, requireAll := range []bool{true, false} {
		p := model.DefaultSignalParams()
		p.RequireAll = requireAll
		got := ClassifySignals([]model.IndicatorRow{row, row}, p)
		for i, r := range got {
			assert.False(t, r.BuySignal, "require_all=%v row %d", requireAll, i)
			assert.False(t, r.SellSignal, "require_all=%v row %d", requireAll, i)
		}
	}
}

func TestClusterByDate(t *testing.T) {
	dates := []time.Time{d(0), d(1), d(2), d(6), d(7), d(11), d(14)}

	assert.Equal(t, []model.Cluster{}, ClusterByDate(dates, nil, 3))
	assert.Equal(t, []model.Cluster{{5}}, ClusterByDate(dates, []int{5}, 3))

	input := []int{0, 1, 3, 4, 5, 6}
	got := ClusterByDate(dates, input, 3)
	assert.Equal(t, []model.Cluster{{0, 1}, {3, 4}, {5, 6}}, got)

	var flat []int
	for _, c := range got {
		require.NotEmpty(t, c)
		flat = append(flat, c...)
	}
	assert.Equal(t, input, flat)
}

func TestClusterByDate_GapFromLastMember(t *testing.T) {
	// Each step is 3 days, so a chain spanning 9 days stays together.
	dates := []time.Time{d(0), d(3), d(6), d(9)}
	got := ClusterByDate(dates, []int{0, 1, 2, 3}, 3)
	assert.Equal(t, []model.Cluster{{0, 1, 2, 3}}, got)
}

func TestClusterByDate_PartialDaysFloor(t *testing.T) {
	dates := []time.Time{d(0), d(3).Add(23 * time.Hour)}
	assert.Len(t, ClusterByDate(dates, []int{0, 1}, 3), 1)
}

func TestSelectIndex(t *testing.T) {
	tests := []struct {
		name    string
		cluster model.Cluster
		q       float64
		want    int
	}{
		{"empty", model.Cluster{}, 0.5, -1},
		{"single", model.Cluster{7}, 0.75, 7},
		{"min", model.Cluster{1, 2, 3}, 0, 1},
		{"max", model.Cluster{1, 2, 3}, 1, 3},
		{"half of one rounds to even", model.Cluster{10, 11}, 0.5, 10},
		{"one and a half rounds to two", model.Cluster{10, 11, 12}, 0.75, 12},
		{"median of four", model.Cluster{10, 11, 12, 13}, 0.5, 12},
		{"two and a half rounds to two", model.Cluster{10, 11, 12, 13, 14, 15}, 0.5, 12},
		{"clamped high", model.Cluster{1, 2}, 1.7, 2},
		{"clamped low", model.Cluster{1, 2}, -0.4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectIndex(tt.cluster, tt.q))
		})
	}
}

func TestSelectIndex_MonotoneInQuantile(t *testing.T) {
	cluster := model.Cluster{3, 4, 5, 8, 9, 12, 13}
	prev := -1
	for q := 0.0; q <= 1.0; q += 0.05 {
		got := SelectIndex(cluster, q)
		assert.GreaterOrEqual(t, got, prev, "q=%.2f", q)
		prev = got
	}
}

func TestQuantileFor(t *testing.T) {
	assert.Equal(t, 0.0, QuantileFor(model.CaseMin, 0.4, 0.9))
	assert.Equal(t, 0.4, QuantileFor(model.CaseAverage, 0.4, 0.9))
	assert.Equal(t, 0.9, QuantileFor(model.CaseGreedy, 0.4, 0.9))
	assert.Equal(t, 0.5, QuantileFor(model.Case("other"), 0.4, 0.9))
}

// signalRows builds a daily series with buy and sell flags on the given days.
func signalRows(n int, buys, sells []int) []model.SignalRow {
	rows := make([]model.SignalRow, n)
	for i := range rows {
		rows[i] = model.SignalRow{IndicatorRow: model.IndicatorRow{
			PriceBar: model.PriceBar{Date: d(i), Close: 100 + float64(i)},
		}}
	}
	for _, i := range buys {
		rows[i].BuySignal = true
	}
	for _, i := range sells {
		rows[i].SellSignal = true
	}
	return rows
}

func defaultOptions() PairingOptions {
	return OptionsFrom(model.DefaultBacktestParams())
}

func TestBuildTrades_PairsByQuantile(t *testing.T) {
	rows := signalRows(30, []int{1, 2, 3}, []int{10, 11, 12})

	minTrades := BuildTrades(rows, model.CaseMin, defaultOptions())
	require.Len(t, minTrades, 1)
	assert.Equal(t, d(1), minTrades[0].EntryDate)
	assert.Equal(t, d(10), minTrades[0].ExitDate)
	assert.Equal(t, 101.0, minTrades[0].EntryPrice)
	assert.Equal(t, 110.0, minTrades[0].ExitPrice)

	avg := BuildTrades(rows, model.CaseAverage, defaultOptions())
	require.Len(t, avg, 1)
	assert.Equal(t, d(2), avg[0].EntryDate)
	assert.Equal(t, d(11), avg[0].ExitDate)

	greedy := BuildTrades(rows, model.CaseGreedy, defaultOptions())
	require.Len(t, greedy, 1)
	assert.Equal(t, d(3), greedy[0].EntryDate)
	assert.Equal(t, d(12), greedy[0].ExitDate)
}

func TestBuildTrades_NoBuys(t *testing.T) {
	rows := signalRows(10, nil, []int{3})
	got := BuildTrades(rows, model.CaseMin, defaultOptions())
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, BuildTrades(nil, model.CaseMin, defaultOptions()))
}

func TestBuildTrades_NoSellsForceClose(t *testing.T) {
	rows := signalRows(20, []int{2, 12}, nil)
	got := BuildTrades(rows, model.CaseMin, defaultOptions())
	require.Len(t, got, 2)
	for _, tr := range got {
		assert.Equal(t, d(19), tr.ExitDate)
		assert.Equal(t, 119.0, tr.ExitPrice)
	}
}

func TestBuildTrades_SellBeforeEntryIsSkipped(t *testing.T) {
	rows := signalRows(20, []int{5}, []int{1, 9})
	got := BuildTrades(rows, model.CaseMin, defaultOptions())
	require.Len(t, got, 1)
	assert.Equal(t, d(9), got[0].ExitDate)
}

func TestBuildTrades_PointerExhaustedAfterForceClose(t *testing.T) {
	// The first buy finds no later sell, so the second buy force-closes too
	// even though a sell cluster exists before it.
	rows := signalRows(30, []int{20, 25}, []int{10})
	got := BuildTrades(rows, model.CaseMin, defaultOptions())
	require.Len(t, got, 2)
	assert.Equal(t, d(29), got[0].ExitDate)
	assert.Equal(t, d(29), got[1].ExitDate)
}

func TestBuildTrades_OverlapReproducedByDefault(t *testing.T) {
	rows := signalRows(30, []int{0, 5}, []int{10, 20})

	got := BuildTrades(rows, model.CaseMin, defaultOptions())
	require.Len(t, got, 2)
	assert.Equal(t, []int{1}, Overlaps(got))

	opts := defaultOptions()
	opts.SkipOverlapping = true
	skipped := BuildTrades(rows, model.CaseMin, opts)
	require.Len(t, skipped, 1)
	assert.Equal(t, d(10), skipped[0].ExitDate)
	assert.Empty(t, Overlaps(skipped))
}

func TestBuildTrades_Deterministic(t *testing.T) {
	rows := signalRows(40, []int{1, 2, 9, 15, 16, 30}, []int{5, 6, 20, 33, 34})
	for _, c := range model.Cases() {
		first := BuildTrades(rows, c, defaultOptions())
		second := BuildTrades(rows, c, defaultOptions())
		assert.Equal(t, first, second, "case %s", c)
	}
}
