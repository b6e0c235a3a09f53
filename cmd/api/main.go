package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/salonkit/bookflow/internal/api/router"
	"github.com/salonkit/bookflow/internal/availability"
	"github.com/salonkit/bookflow/internal/booking"
	"github.com/salonkit/bookflow/internal/bookings"
	appconfig "github.com/salonkit/bookflow/internal/config"
	"github.com/salonkit/bookflow/internal/flow"
	"github.com/salonkit/bookflow/internal/http/handlers"
	"github.com/salonkit/bookflow/internal/observability/metrics"
	"github.com/salonkit/bookflow/internal/salonapi"
	"github.com/salonkit/bookflow/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bookflow API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	apiClient := salonapi.NewClient(cfg.BookingAPIBaseURL, logger,
		salonapi.WithTimeout(cfg.BookingAPITimeout),
	)
	provider := salonapi.NewCatalogAdapter(apiClient)

	bookingMetrics := metrics.NewBookingMetrics(nil)
	fetcher := availability.NewFetcher(apiClient, logger)
	store := flow.NewStore(redisClient, cfg.FlowSessionTTL)
	submitter := booking.NewSubmitter(apiClient, logger, bookingMetrics)

	// The audit database is optional; the flow works without it.
	var recordRepo *bookings.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		recordRepo = bookings.NewRepository(pool)
	}

	var recordWriter handlers.RecordWriter
	var recordsHandler *handlers.RecordsHandler
	if recordRepo != nil {
		recordWriter = recordRepo
		recordsHandler = handlers.NewRecordsHandler(recordRepo, logger)
	}

	flowHandler := handlers.NewFlowHandler(store, provider, fetcher, submitter, recordWriter, logger, bookingMetrics)
	catalogHandler := handlers.NewCatalogHandler(provider, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		FlowHandler:        flowHandler,
		CatalogHandler:     catalogHandler,
		RecordsHandler:     recordsHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
