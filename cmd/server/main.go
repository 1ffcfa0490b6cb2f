package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roomline/service-booking/internal/application"
	"github.com/roomline/service-booking/internal/config"
	bookingEvents "github.com/roomline/service-booking/internal/events"
	"github.com/roomline/service-booking/internal/handler"
	"github.com/roomline/service-booking/internal/repository"
	"github.com/roomline/service-booking/pkg/auth"
	"github.com/roomline/service-booking/pkg/database"
	"github.com/roomline/service-booking/pkg/health"
	"github.com/roomline/service-booking/pkg/kafka"
	"github.com/roomline/service-booking/pkg/logger"
	"github.com/roomline/service-booking/pkg/middleware"
	"github.com/roomline/service-booking/pkg/redislock"
)

const serviceName = "service-booking"

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("BOOKING_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, cfg.Log.Level, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.Int("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	// Connect to database
	db, err := database.Connect(cfg.DB.Postgres(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.IsDevelopment() {
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal("failed to get sql.DB", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	// Conflict notifications go to Kafka when brokers are configured
	var (
		notifier         application.NotificationSink = application.NoopNotifier{}
		conflictNotifier *bookingEvents.ConflictNotifier
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		conflictNotifier = bookingEvents.NewConflictNotifier(kafkaProducer, cfg.Kafka.ConflictsTopic, log)
		notifier = conflictNotifier
	} else {
		log.Warn("no kafka brokers configured, conflict events are not published")
	}

	// Slot lock
	var locker application.SlotLocker = application.NoopLocker{}
	if cfg.Redis.SlotLock {
		redisClient, err := redislock.NewClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		locker = redislock.New(redisClient, serviceName+":", cfg.Redis.SlotLockTTL)
		log.Info("slot lock enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	conflictRepo := repository.NewGormConflictRepository(db)
	capacityRepo := repository.NewGormCapacityRepository(db)
	catalog := repository.NewGormResourceCatalog(db)
	uow := repository.NewGormUnitOfWork(db)

	// Initialize application services
	bookingService := application.NewBookingService(bookingRepo, catalog, uow, log)
	statusService := application.NewStatusService(bookingRepo, uow, locker, notifier, log)
	conflictService := application.NewConflictService(conflictRepo, bookingRepo, uow, notifier, log)
	availabilityService := application.NewAvailabilityService(bookingRepo, catalog, log)
	capacityService := application.NewCapacityService(capacityRepo, uow, log)

	directory := application.ClaimsDirectory{}

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, serviceName)
	healthHandler.RegisterRoutes(router)

	// Register routes
	handler.NewBookingHandler(bookingService, statusService, conflictService, directory).
		RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewConflictHandler(conflictService, directory).
		RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAvailabilityHandler(availabilityService).
		RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminHandler(capacityService, directory).
		RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	// Let queued conflict events reach the broker before the producer closes
	if conflictNotifier != nil {
		conflictNotifier.Wait()
	}

	log.Info(serviceName + " stopped")
}
