package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sokoyetu/payments-backend/api/routes"
	"github.com/sokoyetu/payments-backend/internal/carrier"
	"github.com/sokoyetu/payments-backend/internal/cod"
	"github.com/sokoyetu/payments-backend/internal/notifications"
	"github.com/sokoyetu/payments-backend/internal/payments"
	"github.com/sokoyetu/payments-backend/pkg/config"
	"github.com/sokoyetu/payments-backend/pkg/db"
	"github.com/sokoyetu/payments-backend/pkg/enums"
	"github.com/sokoyetu/payments-backend/pkg/gateway"
	"github.com/sokoyetu/payments-backend/pkg/logger"
	"github.com/sokoyetu/payments-backend/pkg/metrics"
	"github.com/sokoyetu/payments-backend/pkg/migrate"
	"github.com/sokoyetu/payments-backend/pkg/redis"
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

	pollerMetrics := metrics.NewPollerMetrics(prometheus.DefaultRegisterer)

	mtnGateway, err := gateway.NewClient(context.Background(), enums.CarrierMTN, cfg.MTN, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create MTN gateway client", err)
		os.Exit(1)
	}
	airtelGateway, err := gateway.NewClient(context.Background(), enums.CarrierAirtel, cfg.Airtel, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create Airtel gateway client", err)
		os.Exit(1)
	}

	mtnAdapter, err := carrier.NewAdapter(carrier.AdapterParams{
		Config:  carrier.MTNConfig(cfg.MTN),
		Gateway: mtnGateway,
		Logger:  logg,
		Metrics: pollerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create MTN adapter", err)
		os.Exit(1)
	}
	airtelAdapter, err := carrier.NewAdapter(carrier.AdapterParams{
		Config:  carrier.AirtelConfig(cfg.Airtel),
		Gateway: airtelGateway,
		Logger:  logg,
		Metrics: pollerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create Airtel adapter", err)
		os.Exit(1)
	}

	codAdapter, err := cod.NewAdapter(cod.AdapterParams{Logger: logg})
	if err != nil {
		logg.Error(context.Background(), "failed to create COD adapter", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repository: payments.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		MTN:        mtnAdapter,
		Airtel:     airtelAdapter,
		COD:        codAdapter,
		Notifier:   notificationsService,
		Logger:     logg,
	})
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Payments:      paymentsService,
			Notifications: notificationsService,
			Metrics:       prometheus.DefaultGatherer,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
