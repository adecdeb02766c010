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

	"github.com/showroom-dms/showroom/internal/app"
	"github.com/showroom-dms/showroom/internal/audit"
	"github.com/showroom-dms/showroom/internal/auth"
	"github.com/showroom-dms/showroom/internal/credit"
	"github.com/showroom-dms/showroom/internal/customers"
	"github.com/showroom-dms/showroom/internal/dashboard"
	"github.com/showroom-dms/showroom/internal/enquiries"
	"github.com/showroom-dms/showroom/internal/inventory"
	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/observability"
	"github.com/showroom-dms/showroom/internal/platform/cache"
	"github.com/showroom-dms/showroom/internal/platform/db"
	"github.com/showroom-dms/showroom/internal/rbac"
	"github.com/showroom-dms/showroom/internal/sales"
	"github.com/showroom-dms/showroom/internal/settlement"
	"github.com/showroom-dms/showroom/internal/shared"
	"github.com/showroom-dms/showroom/jobs"
	"github.com/showroom-dms/showroom/migrations"
)

const sessionCookie = "showroom_session"

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
	slog.SetDefault(logger)

	tolerance, err := cfg.Tolerance()
	if err != nil {
		logger.Error("settlement tolerance", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGStatementTimeout)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := migrations.Apply(ctx, pool); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

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

	sessionManager := shared.NewSessionManager(redisClient, sessionCookie, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool), pool)
	authHandler := auth.NewHandler(logger, authService, sessionManager, rbacMiddleware)

	ledgerService := ledger.NewService(ledger.NewRepository(pool), tolerance, logger)
	creditService := credit.NewService(credit.NewRepository(pool), tolerance, metrics, logger)
	ledgerService.OnPayment(creditService)
	settlementService := settlement.NewService(settlement.NewRepository(pool), ledgerService, metrics, logger)

	enquiryStats := cache.NewJSONCache(redisClient, "enquiries", cfg.StatsCacheTTL)
	enquiryService := enquiries.NewService(enquiries.NewRepository(pool), enquiryStats, logger)
	salesService := sales.NewService(sales.NewRepository(pool), shared.NewRequestKeys(pool), metrics, logger)
	inventoryService := inventory.NewService(inventory.NewRepository(pool))
	customerService := customers.NewService(customers.NewRepository(pool))
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool),
		cache.NewJSONCache(redisClient, "dashboard", cfg.StatsCacheTTL))

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		Actors:            authService,
		Metrics:           metrics,
		AuthHandler:       authHandler,
		LedgerHandler:     ledger.NewHandler(logger, ledgerService, rbacMiddleware),
		SettlementHandler: settlement.NewHandler(logger, settlementService, rbacMiddleware),
		CreditHandler:     credit.NewHandler(logger, creditService, rbacMiddleware),
		EnquiriesHandler:  enquiries.NewHandler(logger, enquiryService, rbacMiddleware),
		SalesHandler:      sales.NewHandler(logger, salesService, rbacMiddleware),
		InventoryHandler:  inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		CustomersHandler:  customers.NewHandler(logger, customerService, rbacMiddleware),
		AuditHandler:      audit.NewHandler(logger, audit.NewService(audit.NewRepository(pool)), rbacMiddleware),
		DashboardHandler:  dashboard.NewHandler(logger, dashboardService, rbacMiddleware),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger, rbacMiddleware),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
