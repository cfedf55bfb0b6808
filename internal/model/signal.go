package model

// SignalParams holds the thresholds used to turn indicators into buy/sell flags.
type SignalParams struct {
	BBWindow          int     `json:"bb_window" yaml:"bb_window"`
	RSIBuyThreshold   float64 `json:"rsi_buy" yaml:"rsi_buy"`
	RSISellThreshold  float64 `json:"rsi_sell" yaml:"rsi_sell"`
	MACDHistThreshold float64 `json:"macd_hist_threshold" yaml:"macd_hist_threshold"`
	// RequireAll selects AND-of-three for buys (sells stay OR-of-three);
	// when false both sides use a 2-of-3 majority vote.
	RequireAll bool `json:"require_all" yaml:"require_all"`
}

// DefaultSignalParams returns the dashboard defaults.
func DefaultSignalParams() SignalParams {
	return SignalParams{
		BBWindow:          20,
		RSIBuyThreshold:   35,
		RSISellThreshold:  70,
		MACDHistThreshold: 0,
		RequireAll:        true,
	}
}

// SignalRow is an IndicatorRow with the derived buy/sell flags.
type SignalRow struct {
	IndicatorRow
	BuySignal  bool `json:"buy_signal"`
	SellSignal bool `json:"sell_signal"`
}

// Cluster is an ordered run of row indices carrying the same signal type.
type Cluster []int

// SignalKind distinguishes buy from sell flags.
type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
)
