package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	channelgate "github.com/evseev/channelgate"
	"github.com/evseev/channelgate/internal/config"
	"github.com/evseev/channelgate/internal/payment"
	"github.com/evseev/channelgate/internal/repository"
	"github.com/evseev/channelgate/internal/scheduler"
	"github.com/evseev/channelgate/internal/service"
	"github.com/evseev/channelgate/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(channelgate.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := repository.NewStore(pool)

	// Create bot
	b, err := bot.New(cfg.BotToken)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	// Outbound gateways
	gateway := telegram.NewGateway(b)
	invoices := payment.NewClient(cfg.CryptoBotURL, cfg.CryptoBotToken, cfg.CryptoBotAsset)
	limiter := rate.NewLimiter(rate.Limit(config.SendRatePerSecond), config.SendBurst)

	// Lifecycle events: a recovered paid invoice grants access through
	// the same path the interactive purchase flow uses.
	granter := service.NewGranter(store, gateway, gateway, logger)
	events := &service.Events{
		PaymentConfirmed: granter.PaymentConfirmed,
	}

	// Background jobs
	reconciler := service.NewReconciler(store, gateway, limiter, events, logger)
	notifier := service.NewNotifier(store, gateway, limiter, logger)
	broadcaster := service.NewBroadcaster(store, gateway, limiter, logger)
	payments := service.NewPaymentReconciler(store, invoices, events, logger)
	reports := service.NewReports(store, gateway, cfg, logger)

	monday := time.Monday
	tasks := []*scheduler.Task{
		{ID: "expired_sweep", Run: reconciler.Run, Every: config.ExpiredSweepInterval},
		{ID: "expiry_notifications", Run: notifier.Run, Every: config.NotificationInterval},
		{ID: "broadcast_dispatch", Run: broadcaster.Run, Every: config.BroadcastInterval},
		{ID: "pending_payments", Run: payments.Run, Every: config.PendingPaymentInterval},
		{ID: "daily_stats", Run: reports.DailyStats, At: &scheduler.WallClock{Hour: 0, Minute: 5}},
		{ID: "weekly_report", Run: reports.WeeklyReport, At: &scheduler.WallClock{Weekday: &monday, Hour: 9}},
		{ID: "cleanup", Run: reports.Cleanup, At: &scheduler.WallClock{Hour: 3}},
		{ID: "backup", Run: reports.Backup, At: &scheduler.WallClock{Hour: 4}},
	}

	sched := scheduler.New(config.MisfireGrace, config.TaskRunTimeout, logger)
	for _, t := range tasks {
		if err := sched.Register(t); err != nil {
			slog.Error("failed to register task", "error", err)
			os.Exit(1)
		}
	}
	sched.Start(ctx)

	// Metrics endpoint
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	// Graceful shutdown: let running tasks drain before exiting.
	sched.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", "error", err)
	}

	slog.Info("bot stopped gracefully")
}
