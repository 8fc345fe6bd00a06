package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/config"
	"github.com/ndiasse/stockroom/internal/repository"
	"github.com/ndiasse/stockroom/internal/repository/memory"
	"github.com/ndiasse/stockroom/internal/repository/mongodb"
	sheetstore "github.com/ndiasse/stockroom/internal/repository/sheets"
	"github.com/ndiasse/stockroom/internal/scheduler"
	"github.com/ndiasse/stockroom/internal/server/handlers"
	"github.com/ndiasse/stockroom/internal/server/router"
	catalogsvc "github.com/ndiasse/stockroom/internal/service/catalog"
	importersvc "github.com/ndiasse/stockroom/internal/service/importer"
	ledgersvc "github.com/ndiasse/stockroom/internal/service/ledger"
	outletsvc "github.com/ndiasse/stockroom/internal/service/outlet"
	parsvc "github.com/ndiasse/stockroom/internal/service/paranalysis"
	requisitionsvc "github.com/ndiasse/stockroom/internal/service/requisition"
	rolloversvc "github.com/ndiasse/stockroom/internal/service/rollover"
	"github.com/ndiasse/stockroom/pkg/clients/notify"
	"github.com/ndiasse/stockroom/pkg/logger"
)

// outletName identifies the single restaurant this deployment serves.
const outletName = "Restaurant 01"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	var store repository.TableStore
	if cfg.Sheets.StoreBackend == "memory" {
		baseLogger.Warn("using in-memory table store; data will not survive restarts")
		store = memory.NewStore()
	} else {
		sheetsStore, err := sheetstore.NewStore(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets store", zap.Error(err))
		}
		store = sheetsStore
	}

	journal, err := mongodb.NewJournal(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb journal", zap.Error(err))
	}
	defer func() {
		if err := journal.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	ledgerSvc := ledgersvc.NewService(store, baseLogger.Named("svc.ledger"))
	rolloverSvc := rolloversvc.NewService(store, journal, ledgerSvc, baseLogger.Named("svc.rollover"))
	parSvc := parsvc.NewService(store, cfg.Par, baseLogger.Named("svc.par"))
	orderSvc := requisitionsvc.NewService(store, baseLogger.Named("svc.requisition"))
	catalogSvc := catalogsvc.NewService(store, baseLogger.Named("svc.catalog"))
	importerSvc := importersvc.NewService(store, baseLogger.Named("svc.importer"))
	outletSvc := outletsvc.NewService(store, orderSvc, baseLogger.Named("svc.outlet"))

	// Finish or roll back any month close interrupted by a previous crash
	// before either portal can touch the ledger.
	recoverCtx, cancelRecover := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := rolloverSvc.Recover(recoverCtx); err != nil {
		baseLogger.Fatal("rollover recovery failed", zap.Error(err))
	}
	cancelRecover()

	warehouseHandler := handlers.NewWarehouseHandler(
		ledgerSvc, rolloverSvc, parSvc, orderSvc, catalogSvc, importerSvc,
		baseLogger.Named("handlers.warehouse"))
	restaurantHandler := handlers.NewRestaurantHandler(
		outletName, outletSvc, orderSvc, importerSvc,
		baseLogger.Named("handlers.restaurant"))
	engine := router.New(warehouseHandler, restaurantHandler, baseLogger.Named("router"))

	var sched *scheduler.Scheduler
	if cfg.Notify.WebhookURL != "" {
		notifier := notify.NewClient(cfg.Notify)
		sched = scheduler.NewScheduler(cfg.Scheduler, orderSvc, notifier, baseLogger.Named("scheduler"))
		sched.Start()
		defer sched.Stop()
	} else {
		baseLogger.Warn("notify webhook missing, digests disabled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
