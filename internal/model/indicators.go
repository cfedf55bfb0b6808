package model

// IndicatorRow is a PriceBar extended with the technical indicators computed
// up to and including that bar.
type IndicatorRow struct {
	PriceBar
	BBSMA      float64 `json:"bb_sma"`
	BBUpper    float64 `json:"bb_upper"`
	BBLower    float64 `json:"bb_lower"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
}
