package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StockLens/internal/analysis"
	"StockLens/internal/backtest"
	"StockLens/internal/model"
	"StockLens/internal/strategy"
)

const dateLayout = "2006-01-02"

func caseLabel(c model.Case) string {
	switch c {
	case model.CaseMin:
		return "Min"
	case model.CaseAverage:
		return "Average"
	case model.CaseGreedy:
		return "Greedy"
	}
	return string(c)
}

func optPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

func optDays(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0fd", *v)
}

// FormatBacktestReport renders every timeframe and case of a run.
func FormatBacktestReport(r *analysis.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s backtest</b> | as of %s\n", html.EscapeString(r.Symbol), r.AsOf.Format(dateLayout)))
	b.WriteString(fmt.Sprintf("source: %s, %d bars", html.EscapeString(r.Source), r.Bars))
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf(", run %s", r.RunID[:min(8, len(r.RunID))]))
	}
	b.WriteString("\n")

	for _, tf := range backtest.OrderedNames(r.Evaluation) {
		b.WriteString(fmt.Sprintf("\n<b>%s</b> (since %s)\n", html.EscapeString(tf), r.Timeframes[tf].Format(dateLayout)))
		for _, c := range model.Cases() {
			res, ok := r.Evaluation[tf][c]
			if !ok {
				continue
			}
			m := res.Metrics
			if m.NumTrades == 0 {
				b.WriteString(fmt.Sprintf("  %s: no trades\n", caseLabel(c)))
				continue
			}
			b.WriteString(fmt.Sprintf("  %s: %+.1f%% | %d trades | win %.0f%% | ann %s\n",
				caseLabel(c), m.TotalReturnPct, m.NumTrades, m.WinRate*100, optPct(m.AnnualizedReturnPct)))
			b.WriteString(fmt.Sprintf("     avg/trade %+.2f%% | hold %s | max DD %.1f%%",
				m.AvgReturnPerTrade*100, optDays(m.AvgHoldingDays), m.MaxDrawdownPct))
			if n := len(strategy.Overlaps(res.Trades)); n > 0 {
				b.WriteString(fmt.Sprintf(" | ⚠️ %d overlapping", n))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatSignalAlert announces a fresh buy or sell flag on the latest bar.
func FormatSignalAlert(s *analysis.SignalSnapshot, kind model.SignalKind) string {
	var b strings.Builder
	icon := "🟢"
	if kind == model.SignalSell {
		icon = "🔴"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s %s signal</b> | %s\n\n", icon, html.EscapeString(s.Symbol), kind, s.Row.Date.Format(dateLayout)))
	writeIndicators(&b, s)
	return b.String()
}

// FormatSignalStatus describes the latest bar whether or not it is flagged.
func FormatSignalStatus(s *analysis.SignalSnapshot) string {
	var b strings.Builder
	state := "no signal"
	switch {
	case s.Row.BuySignal && s.Row.SellSignal:
		state = "BUY and SELL"
	case s.Row.BuySignal:
		state = "BUY"
	case s.Row.SellSignal:
		state = "SELL"
	}
	b.WriteString(fmt.Sprintf("🔎 <b>%s</b> | %s: %s\n\n", html.EscapeString(s.Symbol), s.Row.Date.Format(dateLayout), state))
	writeIndicators(&b, s)
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("last buy: %s\n", formatOptDate(s.LastBuy)))
	b.WriteString(fmt.Sprintf("last sell: %s\n", formatOptDate(s.LastSell)))
	return b.String()
}

func writeIndicators(b *strings.Builder, s *analysis.SignalSnapshot) {
	r := s.Row
	change := 0.0
	if s.PrevClose > 0 {
		change = (r.Close/s.PrevClose - 1) * 100
	}
	b.WriteString(fmt.Sprintf("close: %.2f (%+.2f%%)\n", r.Close, change))
	b.WriteString(fmt.Sprintf("bollinger: %.2f / %.2f / %.2f\n", r.BBLower, r.BBSMA, r.BBUpper))
	b.WriteString(fmt.Sprintf("RSI(14): %.1f (buy &lt; %.0f, sell &gt; %.0f)\n",
		r.RSI, s.Thresholds.RSIBuyThreshold, s.Thresholds.RSISellThreshold))
	b.WriteString(fmt.Sprintf("MACD: %.3f, signal %.3f, hist %+.3f\n", r.MACD, r.MACDSignal, r.MACDHist))
}

func formatOptDate(t *time.Time) string {
	if t == nil {
		return "none in lookback"
	}
	return t.Format(dateLayout)
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	var b strings.Builder
	b.WriteString("🤖 <b>StockLens commands</b>\n\n")
	b.WriteString("/backtest SYMBOL [TF...] - cluster backtest (TF: ")
	names := make([]string, len(backtest.Presets))
	for i, p := range backtest.Presets {
		names[i] = p.Name
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(")\n")
	b.WriteString("/signal SYMBOL - indicators and flags on the latest bar\n")
	b.WriteString("/watchlist - symbols covered by scheduled reports\n")
	b.WriteString("/help - this message\n")
	return b.String()
}

// FormatError renders a failed command.
func FormatError(action string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", html.EscapeString(action), html.EscapeString(err.Error()))
}
