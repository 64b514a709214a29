package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	adjustmentapp "github.com/pos/backend/internal/application/adjustment"
	bonusapp "github.com/pos/backend/internal/application/bonus"
	reportapp "github.com/pos/backend/internal/application/report"
	salesapp "github.com/pos/backend/internal/application/sales"
	transferapp "github.com/pos/backend/internal/application/transfer"
	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/pos/backend/internal/infrastructure/currency"
	"github.com/pos/backend/internal/infrastructure/event"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/persistence"
	"github.com/pos/backend/internal/infrastructure/scheduler"
	"github.com/pos/backend/internal/infrastructure/tasks"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting POS Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Everything a request writes goes through one transaction scope
	scope := persistence.NewGormTransactionScope(db.DB, cfg.Ledger.WriteTimeout)

	// Initialize application services
	engine := ledger.NewScheduleEngine()
	saleService := salesapp.NewService(scope, engine, log)
	adjustmentService := adjustmentapp.NewService(scope, log)
	transferService := transferapp.NewService(scope, log)
	reportService := reportapp.NewService(scope, log)

	rates := currency.NewConfigRateResolver(cfg.Currency)
	bonusService := bonusapp.NewService(scope, rates, log)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	saleService.SetEventPublisher(eventBus)
	adjustmentService.SetEventPublisher(eventBus)

	bonusHandler := bonusapp.NewTransactionCreatedHandler(bonusService, cfg.Bonus.Delay, log)
	eventBus.Subscribe(bonusHandler)

	recomputeHandler := salesapp.NewScheduleRecomputeHandler(saleService, cfg.Ledger.FailOnRecomputeError, log)
	eventBus.Subscribe(recomputeHandler)

	log.Info("Event handlers registered",
		zap.Strings("bonus_events", bonusHandler.EventTypes()),
		zap.Strings("recompute_events", recomputeHandler.EventTypes()),
	)

	// External task queue for delivery audits
	if cfg.Tasks.Endpoint != "" {
		saleService.SetTaskCreator(tasks.NewClient(cfg.Tasks))
		log.Info("Task client configured", zap.String("endpoint", cfg.Tasks.Endpoint))
	}

	// Background schedule reconciler
	var reconciler *scheduler.Reconciler
	if cfg.Scheduler.ReconcileEnabled {
		driftRepo := persistence.NewGormRepositories(db.DB).Transactions()
		reconciler = scheduler.NewReconciler(driftRepo, saleService, cfg.Scheduler, log)
		reconciler.Start()
		log.Info("Schedule reconciler started",
			zap.Duration("interval", cfg.Scheduler.ReconcileInterval),
			zap.Int("batch", cfg.Scheduler.ReconcileBatch),
		)
	}

	// Assemble HTTP layer
	app := router.New(log, cfg.HTTP.TrustedProxies, router.Handlers{
		Sale:       handler.NewSaleHandler(saleService),
		Adjustment: handler.NewAdjustmentHandler(adjustmentService),
		Transfer:   handler.NewTransferHandler(transferService),
		Report:     handler.NewReportHandler(reportService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        app,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if reconciler != nil {
		reconciler.Stop()
	}

	// Let in-flight event handlers (bonus grace delays included) finish
	eventBus.Wait()

	log.Info("Server exited")
}
