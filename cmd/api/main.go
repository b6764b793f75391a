package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/marketbook/marketbook-api/internal/api/http"
	"github.com/marketbook/marketbook-api/internal/api/http/handlers"
	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/config"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/notify"
	"github.com/marketbook/marketbook-api/internal/observability"
	"github.com/marketbook/marketbook-api/internal/persistence"
	"github.com/marketbook/marketbook-api/internal/repository"
	"github.com/marketbook/marketbook-api/internal/service"
	"github.com/marketbook/marketbook-api/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	adminRepo := repository.NewGlobalAdminRepository(pool)
	escrowRepo := repository.NewEscrowRepository(pool)
	supportRepo := repository.NewSupportRepository(pool)
	publicSupportRepo := repository.NewPublicSupportRepository(pool)
	itemRepo := repository.NewItemRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
	})
	tokens := authService.TokenManager()
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo, adminRepo)

	hub := notify.NewHub(authMiddleware, logger)
	broker := notify.NewRedisBroker(redis.Client, cfg.Redis.PushChannel, hub, logger)
	go func() {
		if err := broker.Run(ctx); err != nil {
			logger.Error("push subscriber stopped", zap.Error(err))
		}
	}()

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		Pusher:           broker,
		Dispatcher:       dispatcher,
		Logger:           logger,
		Metrics:          metrics,
	})
	notificationService.RegisterHandlers()

	adminService := service.NewGlobalAdminService(cfg.Auth, service.GlobalAdminDependencies{
		AdminRepo:    adminRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
		TokenManager: tokens,
	})
	escrowService := service.NewEscrowService(service.EscrowDependencies{
		EscrowRepo: escrowRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	supportService := service.NewSupportService(service.SupportDependencies{
		SupportRepo:       supportRepo,
		PublicSupportRepo: publicSupportRepo,
		UserRepo:          userRepo,
		Dispatcher:        dispatcher,
	})
	itemService := service.NewItemService(service.ItemDependencies{
		ItemRepo:   itemRepo,
		Dispatcher: dispatcher,
	})

	var cleaner *worker.Cleaner
	if cfg.Maintenance.Enabled {
		cleaner = worker.NewCleaner(
			[]worker.Job{worker.NewNotificationRetention(notificationService, cfg.Maintenance.NotificationRetentionDays)},
			worker.WithSchedule(cfg.Maintenance.Schedule),
			worker.WithLogger(logger.Named("maintenance")),
		)
		if err := cleaner.Start(); err != nil {
			logger.Fatal("failed to schedule maintenance", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:      logger,
		Metrics:     metrics,
		Timeout:     cfg.App.RequestTimeout(),
		ExposeCause: !cfg.App.IsProduction(),
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(authService, supportService),
		AdminMode:      handlers.NewAdminModeHandler(authService),
		GlobalAdmins:   handlers.NewGlobalAdminHandler(adminService),
		AdminUsers:     handlers.NewAdminUsersHandler(adminService, supportService),
		Escrow:         handlers.NewEscrowHandler(escrowService),
		AdminEscrow:    handlers.NewAdminEscrowHandler(escrowService),
		Tickets:        handlers.NewTicketsHandler(supportService),
		AdminTickets:   handlers.NewAdminTicketsHandler(supportService),
		Items:          handlers.NewItemsHandler(itemService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", metrics.Handler())
	ops := &http.Server{Addr: cfg.Push.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ops listen", zap.Error(err))
		}
	}()
	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops shutdown", zap.Error(err))
	}
	if cleaner != nil {
		select {
		case <-cleaner.Stop().Done():
		case <-shutdownCtx.Done():
		}
	}
	cancel()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
