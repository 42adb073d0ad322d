package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sioms/sioms/cmd/sioms/cli"
	"github.com/sioms/sioms/internal/app"
	"github.com/sioms/sioms/internal/catalog/customers"
	"github.com/sioms/sioms/internal/catalog/products"
	"github.com/sioms/sioms/internal/catalog/suppliers"
	"github.com/sioms/sioms/internal/dashboard"
	"github.com/sioms/sioms/internal/inventory"
	"github.com/sioms/sioms/internal/notifications"
	"github.com/sioms/sioms/internal/observability"
	"github.com/sioms/sioms/internal/orders"
	"github.com/sioms/sioms/internal/payments"
	"github.com/sioms/sioms/internal/platform/cache"
	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/rbac"
	"github.com/sioms/sioms/internal/reports"
	"github.com/sioms/sioms/internal/shared"
	"github.com/sioms/sioms/internal/users"
	"github.com/sioms/sioms/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		defer jobsCLI.Close()
		if err := jobsCLI.Run(ctx, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("apply schema", slog.Any("error", err))
			os.Exit(1)
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
	} else {
		defer func(client *redis.Client) {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}(redisClient)
	}
	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)

	metrics := observability.NewMetrics()
	tx := db.NewTransactor(pool)
	auditLogger := shared.NewAuditLogger(db.ConnFunc(pool))
	idempotencyStore := shared.NewIdempotencyStore(db.ConnFunc(pool))
	rbacMiddleware := rbac.Middleware{Logger: logger}

	notificationService := notifications.NewService(notifications.NewRepository(pool))

	inventoryService := inventory.NewService(tx, inventory.NewRepository(pool), notificationService,
		inventory.WithAudit(auditLogger),
		inventory.WithMetrics(metrics),
		inventory.WithInvalidator(dashboardCache),
		inventory.WithLogger(logger),
	)

	productService := products.NewService(tx, products.NewRepository(pool), inventoryService, dashboardCache, logger)
	customerService := customers.NewService(customers.NewRepository(pool))
	supplierService := suppliers.NewService(suppliers.NewRepository(pool))

	orderService := orders.NewService(orders.Deps{
		Tx:          tx,
		Repo:        orders.NewRepository(pool),
		Stock:       inventoryService,
		Notifier:    notificationService,
		Idempotency: idempotencyStore,
		Audit:       auditLogger,
		Metrics:     metrics,
		Cache:       dashboardCache,
		Logger:      logger,
	})

	paymentService := payments.NewService(tx, payments.NewRepository(pool), orderService, notificationService,
		payments.WithAudit(auditLogger),
		payments.WithMetrics(metrics),
		payments.WithInvalidator(dashboardCache),
		payments.WithLogger(logger),
	)

	reportService := reports.NewService(reports.NewRepository(pool), logger)
	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), dashboardCache, logger)
	userService := users.NewService(users.NewRepository(pool))

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
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
		Logger:               logger,
		Config:               cfg,
		Metrics:              metrics,
		RBAC:                 rbacMiddleware,
		ProductsHandler:      products.NewHandler(logger, productService),
		CustomersHandler:     customers.NewHandler(logger, customerService),
		SuppliersHandler:     suppliers.NewHandler(logger, supplierService),
		InventoryHandler:     inventory.NewHandler(logger, inventoryService),
		OrdersHandler:        orders.NewHandler(logger, orderService),
		PaymentsHandler:      payments.NewHandler(logger, paymentService),
		ReportsHandler:       reports.NewHandler(logger, reportService),
		NotificationsHandler: notifications.NewHandler(logger, notificationService),
		DashboardHandler:     dashboard.NewHandler(logger, dashboardService),
		UsersHandler:         users.NewHandler(logger, userService, rbacMiddleware),
		JobHandler:           jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
