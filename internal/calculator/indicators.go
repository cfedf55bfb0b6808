package calculator

import (
	"errors"
	"fmt"
	"math"

	"StockLens/internal/model"
)

// RSIPeriod is the Wilder smoothing period used for the signal RSI.
const RSIPeriod = 14

// ErrInvalidInput marks a price series or parameter set the engine refuses to process.
var ErrInvalidInput = errors.New("invalid input")

// ValidatePrices checks that dates are set and strictly ascending and that
// every close is a finite positive number.
func ValidatePrices(prices []model.PriceBar) error {
	for i, p := range prices {
		if p.Date.IsZero() {
			return fmt.Errorf("%w: row %d has no date", ErrInvalidInput, i)
		}
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
			return fmt.Errorf("%w: row %d (%s) close %v is not positive",
				ErrInvalidInput, i, p.Date.Format("2006-01-02"), p.Close)
		}
		if i > 0 && !p.Date.After(prices[i-1].Date) {
			return fmt.Errorf("%w: row %d (%s) is not after %s",
				ErrInvalidInput, i, p.Date.Format("2006-01-02"), prices[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// ComputeIndicators derives Bollinger(BBWindow, 2), RSI(14) and MACD(12,26,9)
// for every bar. Short series use partial windows; an empty series yields an
// empty result.
func ComputeIndicators(prices []model.PriceBar, params model.SignalParams) ([]model.IndicatorRow, error) {
	if params.BBWindow < 1 {
		return nil, fmt.Errorf("%w: bb_window must be >= 1, got %d", ErrInvalidInput, params.BBWindow)
	}
	if err := ValidatePrices(prices); err != nil {
		return nil, err
	}

	rows := make([]model.IndicatorRow, len(prices))
	if len(prices) == 0 {
		return rows, nil
	}

	closes := model.Closes(prices)
	mid, upper, lower := Bollinger(closes, params.BBWindow, BollingerK)
	rsi := RSISeries(closes, RSIPeriod)
	macd, signal, hist := MACD(closes, MACDFast, MACDSlow, MACDSignal)

	for i, p := range prices {
		rows[i] = model.IndicatorRow{
			PriceBar:   p,
			BBSMA:      mid[i],
			BBUpper:    upper[i],
			BBLower:    lower[i],
			RSI:        rsi[i],
			MACD:       macd[i],
			MACDSignal: signal[i],
			MACDHist:   hist[i],
		}
	}
	return rows, nil
}
