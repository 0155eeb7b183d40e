package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/orgmanage/orgmanage/internal/analytics"
	"github.com/orgmanage/orgmanage/internal/app"
	"github.com/orgmanage/orgmanage/internal/auth"
	"github.com/orgmanage/orgmanage/internal/goals"
	jobmetrics "github.com/orgmanage/orgmanage/internal/jobs"
	"github.com/orgmanage/orgmanage/internal/notifications"
	"github.com/orgmanage/orgmanage/internal/platform/cache"
	"github.com/orgmanage/orgmanage/internal/platform/db"
	"github.com/orgmanage/orgmanage/internal/realtime"
	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/sales"
	"github.com/orgmanage/orgmanage/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	broker := realtime.NewBroker(redisClient, logger, cfg.RealtimeBuffer)

	notificationsRepo := notifications.NewPGRepository(pool)
	notificationsService := notifications.NewService(logger, notificationsRepo, broker)

	queue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	rolesRepo := roles.NewRepository(pool)
	authRepo := auth.NewRepository(pool)
	dispatcher := notifications.NewDispatcher(logger, queue, rolesRepo, authRepo)

	analyticsCache := analytics.NewCache(redisClient, cfg.CacheTTL)
	salesRepo := sales.NewPGRepository(pool)
	analyticsService := analytics.NewService(salesRepo, analyticsCache)

	goalsRepo := goals.NewPGRepository(pool)
	goalsService := goals.NewService(logger, goalsRepo, analyticsService, broker, dispatcher)

	metrics := jobmetrics.NewMetrics(nil)
	tracked := func(name string, h asynq.HandlerFunc) asynq.HandlerFunc {
		return func(ctx context.Context, t *asynq.Task) error {
			return metrics.Track(name).End(h(ctx, t))
		}
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: notifications.TaskTypeDispatch, Handler: tracked("notify_dispatch", notificationsService.HandleDispatchTask)},
			{Type: goals.TaskTypeRefresh, Handler: tracked("goals_refresh", goalsService.HandleRefreshTask)},
		},
		Cron: []jobs.CronRegistration{
			// Settle goals past their end date shortly after midnight.
			{Spec: "10 0 * * *", Task: goals.NewRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
