package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"StockLens/internal/alerts"
	"StockLens/internal/analysis"
	"StockLens/internal/api"
	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/logger"
	"StockLens/internal/notifier"
	"StockLens/internal/recorder"
	"StockLens/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		logger.ErrorWithErr(context.Background(), "stocklens exited", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.InitWithConfig(cfg.Log); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = logger.Shutdown(shutdownCtx)
	}()

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "StockLens starting", "watchlist", cfg.Watchlist, "timeframes", cfg.Timeframes)

	fetcher, closeFetcher, err := collector.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFetcher()
	logger.Info(ctx, "data source ready", "source", fetcher.Name())

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			logger.Warn(ctx, "sqlite recorder unavailable, runs will not be stored", "error", err.Error())
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	am, err := alerts.NewManager(cfg.Alerts.StateFile)
	if err != nil {
		return err
	}

	svc := analysis.NewService(fetcher, rec, cfg.StrategyParams(), cfg.Timeframes)

	var (
		n  scheduler.Notifier = notifier.LogNotifier{}
		tn *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	} else {
		logger.Warn(ctx, "telegram not configured, notifications go to the log")
	}

	sched := scheduler.NewScheduler(ctx, svc, am, n, rec, cfg.Watchlist)
	if err := sched.RegisterAll(cfg.Schedule.ReportCron, cfg.Schedule.AlertCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info(ctx, "telegram polling started")
	}

	srv := api.NewServer(svc, cfg.API.Listen)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info(ctx, "RUN_ON_START enabled, executing report task now")
		go sched.RunReportNow()
	}

	logger.Info(ctx, "StockLens is running, press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received, stopping")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(shutdownCtx, "api shutdown failed", err)
	}
	logger.Info(shutdownCtx, "StockLens stopped")
	return nil
}
