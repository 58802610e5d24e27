package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"HammerScanner/internal/collector"
	"HammerScanner/internal/config"
	"HammerScanner/internal/logger"
	"HammerScanner/internal/metrics"
	"HammerScanner/internal/notifier"
	"HammerScanner/internal/recorder"
	"HammerScanner/internal/scanner"
	"HammerScanner/internal/scheduler"
	"HammerScanner/internal/strategy"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config validation: %v", err)
	}
	logger.Infof("HammerScanner starting: mode=%s instruments=%d", cfg.Strategy.Mode, len(cfg.Instruments()))

	var gate *strategy.SupportGate
	if cfg.Strategy.Mode == config.ModeSupport {
		gate = &strategy.SupportGate{
			Lookback:  cfg.Strategy.SupportLookback,
			Tolerance: cfg.Tolerance(),
		}
	}
	evaluator := strategy.NewEvaluator(cfg.Strategy.RSIPeriod, cfg.Strategy.MinBars, cfg.Strategy.RSILimit, gate)

	var (
		notify notifier.Notifier
		tn     *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tn, err = notifier.NewTelegramNotifier(notifier.TelegramConfig{
			BotToken:   cfg.Telegram.BotToken,
			ChatID:     cfg.Telegram.ChatID,
			Proxy:      cfg.Proxy,
			MaxRetries: cfg.Retries(),
		})
		if err != nil {
			logger.Fatalf("init telegram: %v", err)
		}
		notify = tn
	} else {
		logger.Warnf("telegram credentials missing, signals go to the log")
		notify = notifier.NewStdoutNotifier()
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			logger.Warnf("init sqlite recorder failed, using noop: %v", err)
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	m := metrics.NewMetrics()
	formatter := notifier.NewFormatter(cfg.Emojis())
	sc := &scanner.Scanner{
		Universe:  cfg.Instruments(),
		Fetchers:  collector.NewRegistry(cfg.Proxy),
		Evaluator: evaluator,
		Notifier:  notify,
		Formatter: formatter,
		Recorder:  rec,
		Metrics:   m,
		Bars:      cfg.Scan.Bars,
		Summary:   cfg.Scan.Summary,
	}
	sched := scheduler.NewScheduler(sc, formatter, rec, cfg.Scan.Timeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule.Cron == "" || os.Getenv("RUN_ONCE") == "true" {
		rep := sched.RunScan(ctx)
		c := rep.Counts()
		logger.Infof("single scan done: signals=%d skipped=%d", c[scanner.OutcomeSignal], c[scanner.OutcomeSkipped])
		return
	}

	if cfg.Metrics.Addr != "" {
		go m.Serve(ctx, cfg.Metrics.Addr)
	}
	if err := sched.Register(ctx, cfg.Schedule.Cron); err != nil {
		logger.Fatalf("register cron: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Infof("telegram polling started")
	}
	if os.Getenv("RUN_ON_START") == "true" {
		go sched.RunScan(ctx)
	}

	logger.Infof("HammerScanner is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Infof("shutdown signal received, stopping...")
}
