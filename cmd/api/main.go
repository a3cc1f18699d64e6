package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shivanand-vn/SVPharma-sub000/api/routes"
	internalauth "github.com/shivanand-vn/SVPharma-sub000/internal/auth"
	"github.com/shivanand-vn/SVPharma-sub000/internal/customers"
	"github.com/shivanand-vn/SVPharma-sub000/internal/ledger"
	internalorders "github.com/shivanand-vn/SVPharma-sub000/internal/orders"
	internalpayments "github.com/shivanand-vn/SVPharma-sub000/internal/payments"
	"github.com/shivanand-vn/SVPharma-sub000/internal/wallets"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/config"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/db"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/logger"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/metrics"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/migrate"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/outbox"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewLifecycleMetrics(registry)

	gormDB := dbClient.DB()
	customerRepo := customers.NewRepository(gormDB)
	walletRepo := wallets.NewRepository(gormDB)
	orderRepo := internalorders.NewRepository(gormDB)
	paymentRepo := internalpayments.NewRepository(gormDB)
	publisher := outbox.NewService(outbox.NewRepository(gormDB), logg)

	ledgerService, err := ledger.NewService(customerRepo, walletRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	authService, err := internalauth.NewService(customerRepo, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	ordersService, err := internalorders.NewService(orderRepo, customerRepo, ledgerService, dbClient, publisher, recorder)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	walletsService, err := wallets.NewService(walletRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallets service", err)
		os.Exit(1)
	}

	paymentsService, err := internalpayments.NewService(paymentRepo, customerRepo, ledgerService, dbClient, publisher, recorder)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			AuthService:    authService,
			OrdersService:  ordersService,
			WalletsService: walletsService,
			Payments:       paymentsService,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
