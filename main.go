package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"ms-lounge/internal/analytics"
	"ms-lounge/internal/api"
	"ms-lounge/internal/auth"
	"ms-lounge/internal/booking"
	bookingdb "ms-lounge/internal/booking/db"
	"ms-lounge/internal/catalog"
	catalogdb "ms-lounge/internal/catalog/db"
	"ms-lounge/internal/clock"
	"ms-lounge/internal/config"
	"ms-lounge/internal/customer"
	customerdb "ms-lounge/internal/customer/db"
	"ms-lounge/internal/database"
	"ms-lounge/internal/database/migrations"
	"ms-lounge/internal/kafka"
	"ms-lounge/internal/logger"
	"ms-lounge/internal/order"
	orderdb "ms-lounge/internal/order/db"
	rediswrap "ms-lounge/internal/order/redis"
)

// shiftLocker uses Redis when it is configured and reachable, and an
// in-process mutex otherwise.
func shiftLocker(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) (order.ShiftLocker, func()) {
	if cfg.Addr == "" {
		logger.Info("REDIS", "REDIS_ADDR not set, using in-process shift lock")
		return &order.LocalShiftLock{}, func() {}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s, shift lock TTL %s", cfg.Addr, cfg.ShiftLockTTL))
	return rediswrap.NewRedis(redisClient, cfg.ShiftLockTTL, logger), func() { redisClient.Close() }
}

// eventPublisher returns the Kafka producer when enabled, a no-op otherwise.
func eventPublisher(ctx context.Context, cfg config.KafkaConfig, logger *logger.Logger) (kafka.Publisher, func()) {
	if !cfg.Enabled {
		logger.Info("KAFKA", "Kafka disabled, domain events are not published")
		return kafka.NoopPublisher{}, func() {}
	}

	logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers %v", cfg.Brokers))
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, kafka.Topics(cfg.TopicPrefix), logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}

	producer := kafka.NewProducer(cfg.Brokers, cfg.TopicPrefix, logger)
	return producer, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting lounge ledger initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()
	ctx := context.Background()

	clk, err := clock.New(cfg.Business.Timezone)
	if err != nil {
		logger.Fatal("CONFIG", fmt.Sprintf("Invalid BUSINESS_TIMEZONE: %v", err))
	}
	logger.Info("CONFIG", fmt.Sprintf("Business timezone %s, %d admins", cfg.Business.Timezone, len(cfg.Business.AdminIDs)))

	bunDB, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to open database: %v", err))
	}
	defer bunDB.Close()
	logger.Info("DATABASE", fmt.Sprintf("✅ SQLite database opened at %s", cfg.Database.Path))

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{AutoMigrate: true, SeedData: cfg.Database.SeedData}, logger)
	if err := runner.RunMigrations(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to run migrations: %v", err))
	}
	runner.Close()

	events, closeEvents := eventPublisher(ctx, cfg.Kafka, logger)
	defer closeEvents()
	locker, closeLocker := shiftLocker(ctx, cfg.Redis, logger)
	defer closeLocker()

	menuService := catalog.NewMenuService(&catalogdb.DB{Bun: bunDB}, logger)

	orders := &orderdb.DB{Bun: bunDB}
	handler := &api.Handler{
		Bookings: booking.NewBookingService(&bookingdb.DB{Bun: bunDB}, events, clk, logger),
		Customers: customer.NewCustomerService(&customerdb.DB{Bun: bunDB}, events, clk, logger, customer.Settings{
			SignupBonus:   cfg.Business.SignupBonus,
			ReferralBonus: cfg.Business.ReferralBonus,
			BotUsername:   cfg.Business.BotUsername,
		}),
		Orders:  order.NewOrderService(orders, menuService, events, clk, logger),
		Shifts:  order.NewShiftService(orders, locker, events, clk, logger),
		Menu:    menuService,
		Reports: analytics.NewService(bunDB, clk),
		Logger:  logger,
	}

	opts := api.RouterOptions{IsAdmin: cfg.Business.IsAdmin}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("AUTH", "JWT_SECRET not set, API authentication is disabled")
	} else {
		issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			logger.Fatal("AUTH", err.Error())
		}
		opts.Issuer = issuer
		logger.Info("AUTH", "JWT middleware applied to protected API routes")
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      api.NewRouter(handler, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Lounge ledger running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Lounge ledger shutdown complete")
	}
}
