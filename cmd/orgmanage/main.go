package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/orgmanage/orgmanage/cmd/orgmanage/cli"
	"github.com/orgmanage/orgmanage/internal/admin"
	"github.com/orgmanage/orgmanage/internal/analytics"
	"github.com/orgmanage/orgmanage/internal/announcements"
	"github.com/orgmanage/orgmanage/internal/app"
	"github.com/orgmanage/orgmanage/internal/auth"
	"github.com/orgmanage/orgmanage/internal/finance"
	"github.com/orgmanage/orgmanage/internal/goals"
	"github.com/orgmanage/orgmanage/internal/hr"
	"github.com/orgmanage/orgmanage/internal/it"
	"github.com/orgmanage/orgmanage/internal/notifications"
	"github.com/orgmanage/orgmanage/internal/observability"
	"github.com/orgmanage/orgmanage/internal/platform/cache"
	"github.com/orgmanage/orgmanage/internal/platform/db"
	"github.com/orgmanage/orgmanage/internal/policy"
	"github.com/orgmanage/orgmanage/internal/realtime"
	"github.com/orgmanage/orgmanage/internal/roles"
	"github.com/orgmanage/orgmanage/internal/sales"
	"github.com/orgmanage/orgmanage/internal/shared"
	"github.com/orgmanage/orgmanage/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 {
		os.Exit(cli.Run(ctx, cli.Options{
			Args:      os.Args[1:],
			PGDSN:     cfg.PGDSN,
			RedisAddr: cfg.RedisAddr,
			Stdout:    os.Stdout,
			Stderr:    os.Stderr,
		}))
	}

	if err := db.Migrate(cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

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

	sessionManager := shared.NewSessionManager(redisClient, "orgmanage_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	reviewRecorder := shared.NewReviewRecorder(pool, logger)

	rolesRepo := roles.NewRepository(pool)
	resolver := auth.NewResolver(rolesRepo, redisClient, cfg.CacheTTL, logger)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, resolver, sessionManager, csrfManager)

	broker := realtime.NewBroker(redisClient, logger, cfg.RealtimeBuffer)
	fetcher := realtime.NewPGFetcher(pool)
	bridge := realtime.NewBridge(broker, fetcher, logger, realtime.Collections)
	realtimeHandler := realtime.NewHandler(logger, broker, bridge)

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

	dispatcher := notifications.NewDispatcher(logger, queue, rolesRepo, authRepo)

	notificationsRepo := notifications.NewPGRepository(pool)
	notificationsService := notifications.NewService(logger, notificationsRepo, broker)
	notificationsHandler := notifications.NewHandler(logger, notificationsService)
	internalNotifications := notifications.NewInternalHandler(logger, dispatcher, cfg.ServiceTokenSecret)

	analyticsCache := analytics.NewCache(redisClient, cfg.CacheTTL)

	salesRepo := sales.NewPGRepository(pool)
	salesService := sales.NewService(logger, salesRepo, broker, analyticsCache, dispatcher)
	salesHandler := sales.NewHandler(logger, salesService)

	analyticsService := analytics.NewService(salesRepo, analyticsCache)
	analyticsHandler := analytics.NewHandler(logger, analyticsService)

	goalsRepo := goals.NewPGRepository(pool)
	goalsService := goals.NewService(logger, goalsRepo, analyticsService, broker, dispatcher)
	goalsHandler := goals.NewHandler(logger, goalsService)

	hrRepo := hr.NewPGRepository(pool)
	hrService := hr.NewService(logger, hrRepo, broker, reviewRecorder, dispatcher)
	hrHandler := hr.NewHandler(logger, hrService)

	financeRepo := finance.NewPGRepository(pool)
	financeService := finance.NewService(logger, financeRepo, broker, reviewRecorder, dispatcher)
	financeHandler := finance.NewHandler(logger, financeService)

	itRepo := it.NewPGRepository(pool)
	itService := it.NewService(logger, itRepo, broker, reviewRecorder, dispatcher)
	itHandler := it.NewHandler(logger, itService)

	announcementsRepo := announcements.NewPGRepository(pool)
	announcementsService := announcements.NewService(logger, announcementsRepo, broker, dispatcher)
	announcementsHandler := announcements.NewHandler(logger, announcementsService)

	adminRepo := admin.NewPGRepository(pool)
	adminService := admin.NewService(logger, adminRepo, rolesRepo, resolver, auditLogger, dispatcher)
	adminHandler := admin.NewHandler(logger, adminService)

	metrics := observability.NewMetrics()
	guard := policy.Guard{Logger: logger}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	middlewares := app.MiddlewareStack(app.MiddlewareConfig{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Resolver:       resolver,
		Metrics:        metrics,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		Middlewares:           middlewares,
		Guard:                 guard,
		AuthHandler:           authHandler,
		SalesHandler:          salesHandler,
		AnalyticsHandler:      analyticsHandler,
		GoalsHandler:          goalsHandler,
		HRHandler:             hrHandler,
		FinanceHandler:        financeHandler,
		ITHandler:             itHandler,
		AnnouncementsHandler:  announcementsHandler,
		NotificationsHandler:  notificationsHandler,
		InternalNotifications: internalNotifications,
		AdminHandler:          adminHandler,
		RealtimeHandler:       realtimeHandler,
		JobHandler:            jobHandler,
		Metrics:               metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return bridge.Run(groupCtx)
	})

	group.Go(func() error {
		if err := analyticsCache.ListenForInvalidation(groupCtx, ""); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("cache invalidation listener", slog.Any("error", err))
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run", slog.Any("error", err))
		os.Exit(1)
	}
}
