package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"StockLens/internal/alerts"
	"StockLens/internal/analysis"
	"StockLens/internal/logger"
	"StockLens/internal/model"
	"StockLens/internal/notifier"
	"StockLens/internal/recorder"
)

// Notifier delivers formatted messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Analysis  *analysis.Service
	Alerts    *alerts.Manager
	Notifier  Notifier
	Recorder  recorder.Recorder
	Watchlist []string
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, svc *analysis.Service, am *alerts.Manager, n Notifier, rec recorder.Recorder, watchlist []string) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Analysis:  svc,
		Alerts:    am,
		Notifier:  n,
		Recorder:  rec,
		Watchlist: watchlist,
		Ctx:       ctx,
	}
}

// RegisterAll registers the report and alert tasks.
func (s *Scheduler) RegisterAll(reportCron, alertCron string) error {
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	if _, err := s.Cron.AddFunc(alertCron, s.alertTask); err != nil {
		return fmt.Errorf("register alert task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info(s.Ctx, "scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info(s.Ctx, "scheduler stopped")
}

// RunReportNow executes the report task immediately (for RUN_ON_START).
func (s *Scheduler) RunReportNow() {
	s.reportTask()
}

func (s *Scheduler) reportTask() {
	logger.Info(s.Ctx, "running report task", "symbols", len(s.Watchlist))
	for _, symbol := range s.Watchlist {
		if s.Ctx.Err() != nil {
			return
		}
		report, err := s.Analysis.Backtest(s.Ctx, symbol, nil)
		if err != nil {
			logger.ErrorWithErr(s.Ctx, "scheduled backtest failed", err, "symbol", symbol)
			s.trySend(notifier.FormatError("backtest "+symbol, err))
			continue
		}
		s.trySend(notifier.FormatBacktestReport(report))
	}
}

func (s *Scheduler) alertTask() {
	logger.Info(s.Ctx, "running alert task", "symbols", len(s.Watchlist))
	for _, symbol := range s.Watchlist {
		if s.Ctx.Err() != nil {
			return
		}
		if err := s.checkSignal(s.Ctx, symbol); err != nil {
			logger.ErrorWithErr(s.Ctx, "signal check failed", err, "symbol", symbol)
		}
	}
}

// checkSignal alerts on buy or sell flags of the latest bar that were not
// announced before.
func (s *Scheduler) checkSignal(ctx context.Context, symbol string) error {
	snap, err := s.Analysis.LatestSignal(ctx, symbol)
	if err != nil {
		return err
	}

	flags := map[model.SignalKind]bool{
		model.SignalBuy:  snap.Row.BuySignal,
		model.SignalSell: snap.Row.SellSignal,
	}
	for _, kind := range []model.SignalKind{model.SignalBuy, model.SignalSell} {
		if !flags[kind] {
			continue
		}
		fresh, err := s.Alerts.ShouldAlert(snap.Symbol, kind, snap.Row.Date)
		if err != nil {
			return err
		}
		if !fresh {
			logger.Debug(ctx, "signal already announced", "symbol", snap.Symbol, "kind", string(kind))
			continue
		}

		logger.Signal(ctx, snap.Symbol, string(kind), snap.Row.Date, snap.Row.Close, "rsi", snap.Row.RSI)
		s.trySend(notifier.FormatSignalAlert(snap, kind))
		if err := s.Recorder.RecordAlert(ctx, &recorder.AlertEvent{
			Symbol:   snap.Symbol,
			Kind:     kind,
			BarDate:  snap.Row.Date,
			Close:    snap.Row.Close,
			RSI:      snap.Row.RSI,
			MACDHist: snap.Row.MACDHist,
		}); err != nil {
			logger.ErrorWithErr(ctx, "record alert failed", err, "symbol", snap.Symbol)
		}
	}
	return nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// Group chats append the bot name: /backtest@StockLensBot
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/backtest":
		if len(args) == 0 {
			return "usage: /backtest SYMBOL [TF...]"
		}
		report, err := s.Analysis.Backtest(ctx, args[0], args[1:])
		if err != nil {
			return notifier.FormatError("backtest "+args[0], err)
		}
		return notifier.FormatBacktestReport(report)
	case "/signal":
		if len(args) == 0 {
			return "usage: /signal SYMBOL"
		}
		snap, err := s.Analysis.LatestSignal(ctx, args[0])
		if err != nil {
			return notifier.FormatError("signal "+args[0], err)
		}
		return notifier.FormatSignalStatus(snap)
	case "/watchlist":
		if len(s.Watchlist) == 0 {
			return "watchlist is empty"
		}
		return "👀 watchlist: " + strings.Join(s.Watchlist, ", ")
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		logger.ErrorWithErr(s.Ctx, "send notification failed", err)
	}
}
