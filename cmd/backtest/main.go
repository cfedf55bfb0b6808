// Command backtest runs the cluster backtest once and prints the result.
//
//	backtest -symbol SPY -timeframes YTD,1Y
//	backtest -csv prices.csv -json
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"StockLens/internal/analysis"
	"StockLens/internal/backtest"
	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/logger"
	"StockLens/internal/model"
	"StockLens/internal/recorder"
)

func main() {
	var (
		cfgPath    = flag.String("config", config.PathFromEnv(), "config file")
		symbol     = flag.String("symbol", "", "ticker to fetch and backtest")
		timeframes = flag.String("timeframes", "", "comma separated timeframes (default from config)")
		csvPath    = flag.String("csv", "", "read date,close rows from a CSV file instead of fetching")
		asJSON     = flag.Bool("json", false, "print the report as JSON")
		record     = flag.Bool("record", false, "store the run in the configured SQLite database")
	)
	flag.Parse()

	if err := run(*cfgPath, *symbol, *timeframes, *csvPath, *asJSON, *record); err != nil {
		fmt.Fprintln(os.Stderr, "backtest:", err)
		os.Exit(1)
	}
}

func run(cfgPath, symbol, tfList, csvPath string, asJSON, record bool) error {
	if symbol == "" && csvPath == "" {
		return errors.New("either -symbol or -csv is required")
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Keep stdout clean for the report.
	cfg.Log.Level = "WARN"
	cfg.Log.TracingEnabled = false
	if err := logger.InitWithConfig(cfg.Log); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var rec recorder.Recorder
	if record && cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			return err
		}
		defer sr.Close()
		rec = sr
	}

	tfs := config.SplitList(tfList)

	var report *analysis.Report
	if csvPath != "" {
		prices, err := readCSV(csvPath)
		if err != nil {
			return err
		}
		svc := analysis.NewService(nil, rec, cfg.StrategyParams(), cfg.Timeframes)
		name := symbol
		if name == "" {
			name = strings.TrimSuffix(csvPath[strings.LastIndex(csvPath, "/")+1:], ".csv")
		}
		report, err = svc.EvaluatePrices(ctx, name, prices, tfs)
		if err != nil {
			return err
		}
	} else {
		fetcher, closeFetcher, err := collector.FromConfig(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFetcher()
		svc := analysis.NewService(fetcher, rec, cfg.StrategyParams(), cfg.Timeframes)
		report, err = svc.Backtest(ctx, symbol, tfs)
		if err != nil {
			return err
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(os.Stdout, report)
}

// readCSV loads date,close rows. A header row is skipped when its close
// column is not numeric.
func readCSV(path string) ([]model.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	bars := make([]model.PriceBar, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("%s line %d: want date,close", path, i+1)
		}
		c, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("%s line %d: bad close %q", path, i+1, rec[1])
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad date %q", path, i+1, rec[0])
		}
		bars = append(bars, model.PriceBar{Date: d, Close: c})
	}
	return bars, nil
}

func printReport(w io.Writer, r *analysis.Report) error {
	fmt.Fprintf(w, "%s backtest as of %s (%d bars, source %s)\n",
		r.Symbol, r.AsOf.Format("2006-01-02"), r.Bars, r.Source)
	if r.RunID != "" {
		fmt.Fprintf(w, "run %s\n", r.RunID)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nTIMEFRAME\tCASE\tTRADES\tTOTAL%\tWIN\tANN%\tAVG/TRADE%\tHOLD\tMAX DD%")
	for _, tf := range backtest.OrderedNames(r.Evaluation) {
		for _, c := range model.Cases() {
			m := r.Evaluation[tf][c].Metrics
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.0f%%\t%s\t%.2f\t%s\t%.2f\n",
				tf, c, m.NumTrades, m.TotalReturnPct, m.WinRate*100,
				optional(m.AnnualizedReturnPct, "%.2f"), m.AvgReturnPerTrade*100,
				optional(m.AvgHoldingDays, "%.1fd"), m.MaxDrawdownPct)
		}
	}
	return tw.Flush()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
