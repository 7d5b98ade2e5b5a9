package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"arremate-backend/internal/auth"
	"arremate-backend/internal/cache"
	"arremate-backend/internal/config"
	"arremate-backend/internal/database"
	"arremate-backend/internal/db"
	"arremate-backend/internal/handlers"
	"arremate-backend/internal/health"
	h "arremate-backend/internal/http"
	"arremate-backend/internal/logger"
	"arremate-backend/internal/middleware"
	"arremate-backend/internal/monitoring"
	"arremate-backend/internal/repositories"
	"arremate-backend/internal/services"
	"arremate-backend/internal/timeutil"
	"arremate-backend/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := timeutil.SetLocation(cfg.Factory.Timezone); err != nil {
		zlog.Warn("unknown factory timezone, keeping default",
			zap.String("timezone", cfg.Factory.Timezone), zap.Error(err))
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	zlog.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))

	if err := database.NewMigrator(pool, migrations.FS, zlog).RunMigrations(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Redis is optional; every cache call degrades to a miss without it
	if cfg.Redis.Addr != "" {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			zlog.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			defer cache.Close()
		}
	}

	store := services.NewPostgresStore(repositories.NewStore(pool))
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpirationHours)

	// Services
	userService := services.NewUserService(store, jwtManager, zlog)
	sessionService := services.NewSessionService(store, store, store, zlog)
	balanceService := services.NewBalanceService(store, zlog)
	workerService := services.NewWorkerService(store)
	reportService := services.NewReportService(store, store)
	alertService := services.NewAlertService(store, zlog)

	hub := monitoring.NewAlertHub(zlog)
	go hub.Run(ctx)
	alertService.SetPublisher(hub)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, store)
	router := h.NewRouter(h.Handlers{
		Auth:    handlers.NewAuthHandler(userService),
		Session: handlers.NewSessionHandler(sessionService),
		Queue:   handlers.NewQueueHandler(balanceService),
		Ledger:  handlers.NewLedgerHandler(sessionService, store),
		Worker:  handlers.NewWorkerHandler(sessionService, workerService, reportService),
		Alert:   handlers.NewAlertHandler(alertService, hub),
		Health:  handlers.NewHealthHandler(health.NewHealthChecker(pool)),
	}, authMiddleware, zlog)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.NewCORS(cfg)(router), // outside mux so preflight is answered
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
