package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/notification-service/internal/config"
	"github.com/yourorg/notification-service/internal/handler"
	"github.com/yourorg/notification-service/internal/kafka"
	"github.com/yourorg/notification-service/internal/middleware"
	"github.com/yourorg/notification-service/internal/repository"
	"github.com/yourorg/notification-service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Connect to database
	db, err := connectToDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Create repository and service
	notificationRepo := repository.NewNotificationRepository(db, logger)
	notificationService := service.NewNotificationService(notificationRepo, logger)

	// Start the event-ingestion consumer (if enabled)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		consumer = kafka.NewConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.Topic,
			cfg.Kafka.GroupID,
			notificationService,
			logger,
		)
		logger.Info("Starting Kafka consumer",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))

		go func() {
			if err := consumer.Run(consumerCtx); err != nil && err != context.Canceled {
				logger.Error("Kafka consumer stopped", zap.Error(err))
			}
		}()
	}

	// Create HTTP server
	router := setupRouter(notificationService, cfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop the consumer before the server so in-flight saves finish
	stopConsumer()
	if consumer != nil {
		consumer.Close()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func connectToDB(dbConfig config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName,
		dbConfig.SSLMode,
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}

func setupRouter(
	notificationService *service.NotificationService,
	cfg *config.Config,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	notifHandler := handler.NewNotificationHandler(notificationService, logger)

	// API routes
	v1 := router.Group("/api/v1")
	{
		// ==================== USER ROUTES ====================
		notifications := v1.Group("/users/me/notifications")
		{
			notifications.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret, logger))

			notifications.GET("", notifHandler.GetNotifications)
			notifications.GET("/status", notifHandler.GetStatus)
			notifications.GET("/:id", notifHandler.GetNotification)
			notifications.PUT("/read", notifHandler.MarkRead)
			notifications.PUT("/unread", notifHandler.MarkUnread)
			notifications.PUT("/save", notifHandler.MarkSaved)
			notifications.PUT("/unsave", notifHandler.MarkUnsaved)
		}

		// ==================== SERVICE API ====================
		// Ingestion endpoint for producing systems that bypass Kafka
		svc := v1.Group("/service")
		{
			svc.Use(middleware.ServiceAuthMiddleware(cfg.Server.ServiceKey, logger))

			svc.POST("/notifications", notifHandler.CreateNotification)
		}
	}

	return router
}
