package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/analysis"
	"StockLens/internal/collector"
	"StockLens/internal/model"
)

func setupRouter(t *testing.T, f collector.Fetcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := analysis.NewService(f, nil, model.DefaultBacktestParams(), nil)
	return NewServer(svc, ":0").Engine
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func inlinePrices(n int) []PriceInput {
	out := make([]PriceInput, n)
	for i := range out {
		out[i] = PriceInput{
			Date:  fmt.Sprintf("2024-03-%02d", i+1),
			Close: 100 + float64(i%7)*3 - float64(i%5)*2,
		}
	}
	return out
}

func TestHealth(t *testing.T) {
	r := setupRouter(t, &collector.MockFetcher{Price: 100})
	w := doJSON(t, r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"mock"`)
}

func TestTimeframes(t *testing.T) {
	r := setupRouter(t, &collector.MockFetcher{Price: 100})
	w := doJSON(t, r, http.MethodGet, "/api/timeframes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"YTD"`)
	assert.Contains(t, w.Body.String(), `"defaults":["YTD","1Y","3Y"]`)
}

func TestBacktest_InlinePrices(t *testing.T) {
	r := setupRouter(t, &collector.MockFetcher{Err: errors.New("must not fetch")})
	w := doJSON(t, r, http.MethodPost, "/api/backtest", BacktestRequest{
		Prices:     inlinePrices(28),
		Timeframes: []string{"1y"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report analysis.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "INLINE", report.Symbol)
	assert.Equal(t, "inline", report.Source)
	assert.Equal(t, 28, report.Bars)
	require.Contains(t, report.Evaluation, "1Y")
	for _, c := range model.Cases() {
		assert.Contains(t, report.Evaluation["1Y"], c)
	}
}

func TestBacktest_ParamsOverride(t *testing.T) {
	r := setupRouter(t, &collector.MockFetcher{Price: 100})
	p := model.DefaultBacktestParams()
	p.ClusterGapDays = 7
	p.Signal.RequireAll = false
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	w := doJSON(t, r, http.MethodPost, "/api/backtest", BacktestRequest{Symbol: "spy", Params: raw})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report analysis.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "SPY", report.Symbol)
	assert.Equal(t, p, report.Params)
}

func TestBacktest_PartialParamsKeepDefaults(t *testing.T) {
	defaults := model.DefaultBacktestParams()
	tests := []struct {
		name string
		body string
		want func(*model.BacktestParams)
	}{
		{
			name: "gap only",
			body: `{"symbol":"SPY","params":{"cluster_gap_days":5}}`,
			want: func(p *model.BacktestParams) { p.ClusterGapDays = 5 },
		},
		{
			name: "nested window",
			body: `{"symbol":"SPY","params":{"signal":{"bb_window":10},"greedy_quantile":1}}`,
			want: func(p *model.BacktestParams) { p.Signal.BBWindow = 10; p.GreedyQuantile = 1 },
		},
		{
			name: "null params",
			body: `{"symbol":"SPY","params":null}`,
			want: func(*model.BacktestParams) {},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(t, &collector.MockFetcher{Price: 100})
			w := doJSON(t, r, http.MethodPost, "/api/backtest", json.RawMessage(tt.body))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var report analysis.Report
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
			want := defaults
			tt.want(&want)
			assert.Equal(t, want, report.Params)
			assert.Equal(t, defaults.Signal.RSIBuyThreshold, report.Params.Signal.RSIBuyThreshold)
			assert.Equal(t, defaults.Signal.RSISellThreshold, report.Params.Signal.RSISellThreshold)
			assert.True(t, report.Params.Signal.RequireAll)
			assert.Equal(t, defaults.AvgQuantile, report.Params.AvgQuantile)
		})
	}
}

func TestMergeParams(t *testing.T) {
	base := model.DefaultBacktestParams()

	got, err := mergeParams(base, json.RawMessage(`{"skip_overlapping":true}`))
	require.NoError(t, err)
	want := base
	want.SkipOverlapping = true
	assert.Equal(t, want, got)

	_, err = mergeParams(base, json.RawMessage(`{"avg_quantile":-0.5}`))
	assert.ErrorContains(t, err, "avg_quantile")
	_, err = mergeParams(base, json.RawMessage(`{"cluster_gap_days":"x"}`))
	assert.ErrorContains(t, err, "invalid params")

	nan := base
	nan.GreedyQuantile = math.NaN()
	assert.Error(t, checkQuantiles(nan))
}

func TestShutdownBeforeServe(t *testing.T) {
	svc := analysis.NewService(&collector.MockFetcher{Price: 100}, nil, model.DefaultBacktestParams(), nil)
	srv := NewServer(svc, "127.0.0.1:0")
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.ListenAndServe())
}

func TestBacktest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fetcher collector.Fetcher
		body    any
		want    int
	}{
		{"empty body", &collector.MockFetcher{Price: 100}, BacktestRequest{}, http.StatusBadRequest},
		{"malformed json", &collector.MockFetcher{Price: 100}, "nope", http.StatusBadRequest},
		{"bad date", &collector.MockFetcher{Price: 100}, BacktestRequest{Prices: []PriceInput{{Date: "03/01/2024", Close: 1}}}, http.StatusBadRequest},
		{"descending prices", &collector.MockFetcher{Price: 100}, BacktestRequest{Prices: []PriceInput{{Date: "2024-03-02", Close: 1}, {Date: "2024-03-01", Close: 1}}}, http.StatusBadRequest},
		{"unknown timeframe", &collector.MockFetcher{Price: 100}, BacktestRequest{Symbol: "SPY", Timeframes: []string{"9Q"}}, http.StatusBadRequest},
		{"quantile out of range", &collector.MockFetcher{Price: 100}, json.RawMessage(`{"symbol":"SPY","params":{"greedy_quantile":1.5}}`), http.StatusBadRequest},
		{"zero window", &collector.MockFetcher{Price: 100}, json.RawMessage(`{"symbol":"SPY","params":{"signal":{"bb_window":0}}}`), http.StatusBadRequest},
		{"no data", &collector.MockFetcher{Bars: []model.PriceBar{}}, BacktestRequest{Symbol: "SPY"}, http.StatusNotFound},
		{"source down", &collector.MockFetcher{Err: errors.New("timeout")}, BacktestRequest{Symbol: "SPY"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, setupRouter(t, tt.fetcher), http.MethodPost, "/api/backtest", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestSignal(t *testing.T) {
	r := setupRouter(t, &collector.MockFetcher{Price: 100})
	w := doJSON(t, r, http.MethodGet, "/api/signals/qqq", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var snap analysis.SignalSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "QQQ", snap.Symbol)
	assert.False(t, snap.Row.Date.IsZero())

	r = setupRouter(t, &collector.MockFetcher{Err: errors.New("timeout")})
	w = doJSON(t, r, http.MethodGet, "/api/signals/qqq", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
