package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"StockLens/internal/analysis"
	"StockLens/internal/backtest"
	"StockLens/internal/calculator"
	"StockLens/internal/config"
	"StockLens/internal/logger"
	"StockLens/internal/model"
)

// Server exposes the analysis service over HTTP.
type Server struct {
	Analysis *analysis.Service
	Engine   *gin.Engine
	http     *http.Server
}

// PriceInput is one bar of an inline series. Date accepts 2006-01-02 or RFC 3339.
type PriceInput struct {
	Date  string  `json:"date" binding:"required"`
	Close float64 `json:"close"`
}

// BacktestRequest runs either on fetched prices (symbol only) or on an
// inline series. Params is merged over the service's configured parameters,
// so omitted fields keep their configured values.
type BacktestRequest struct {
	Symbol     string          `json:"symbol"`
	Prices     []PriceInput    `json:"prices"`
	Timeframes []string        `json:"timeframes"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// NewServer builds the router and the HTTP server bound to addr.
func NewServer(svc *analysis.Service, addr string) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	s := &Server{
		Analysis: svc,
		Engine:   r,
		http: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	api := r.Group("/api")
	api.GET("/health", s.health)
	api.GET("/timeframes", s.timeframes)
	api.POST("/backtest", s.backtest)
	api.GET("/signals/:symbol", s.signal)
	return s
}

// ListenAndServe serves until Shutdown is called. It returns nil right away
// when Shutdown already ran.
func (s *Server) ListenAndServe() error {
	logger.Info(context.Background(), "api listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "source": s.Analysis.Fetcher.Name()})
}

func (s *Server) timeframes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"presets":  backtest.Presets,
		"defaults": backtest.DefaultTimeframes,
	})
}

func (s *Server) backtest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.Symbol == "" && len(req.Prices) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol or prices is required"})
		return
	}

	svc := s.Analysis
	if len(req.Params) > 0 && string(req.Params) != "null" {
		params, err := mergeParams(s.Analysis.Params, req.Params)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		override := *s.Analysis
		override.Params = params
		svc = &override
	}

	ctx := c.Request.Context()
	var (
		report *analysis.Report
		err    error
	)
	if len(req.Prices) > 0 {
		prices, perr := parsePrices(req.Prices)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		symbol := req.Symbol
		if symbol == "" {
			symbol = "INLINE"
		}
		report, err = svc.EvaluatePrices(ctx, symbol, prices, req.Timeframes)
	} else {
		report, err = svc.Backtest(ctx, req.Symbol, req.Timeframes)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) signal(c *gin.Context) {
	snap, err := s.Analysis.LatestSignal(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func parsePrices(in []PriceInput) ([]model.PriceBar, error) {
	out := make([]model.PriceBar, len(in))
	for i, p := range in {
		d, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			if d, err = time.Parse(time.RFC3339, p.Date); err != nil {
				return nil, fmt.Errorf("prices[%d]: bad date %q", i, p.Date)
			}
		}
		out[i] = model.PriceBar{Date: model.DayOf(d), Close: p.Close}
	}
	return out, nil
}

// mergeParams decodes raw over a copy of base and validates the result.
func mergeParams(base model.BacktestParams, raw json.RawMessage) (model.BacktestParams, error) {
	params := base
	if err := json.Unmarshal(raw, &params); err != nil {
		return base, fmt.Errorf("invalid params: %w", err)
	}
	if err := backtest.ValidateParams(params); err != nil {
		return base, err
	}
	if err := checkQuantiles(params); err != nil {
		return base, err
	}
	return params, nil
}

func checkQuantiles(p model.BacktestParams) error {
	if !config.ValidQuantile(p.AvgQuantile) {
		return fmt.Errorf("avg_quantile must be within [0, 1], got %v", p.AvgQuantile)
	}
	if !config.ValidQuantile(p.GreedyQuantile) {
		return fmt.Errorf("greedy_quantile must be within [0, 1], got %v", p.GreedyQuantile)
	}
	return nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calculator.ErrInvalidInput), errors.Is(err, backtest.ErrUnknownTimeframe):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorWithErr(c.Request.Context(), "api request failed", err, "path", c.FullPath())
	}
	c.JSON(status, gin.H{"error": strings.TrimSpace(err.Error())})
}
