package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskmanagerx/internal/handler"
	"taskmanagerx/internal/httpserver"
	"taskmanagerx/internal/repository"
	authsvc "taskmanagerx/internal/service/auth"
	tasksvc "taskmanagerx/internal/service/task"
	"taskmanagerx/pkg/config"
	"taskmanagerx/pkg/db"
	"taskmanagerx/pkg/logger"
	"taskmanagerx/pkg/mq"
	redisclient "taskmanagerx/pkg/redis"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load(config.GetConfigEnv(), "")
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting taskd...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	taskRepo := repository.NewTaskRepository(dbConn, log)
	userRepo := repository.NewUserRepository(dbConn, log)
	referralRepo := repository.NewReferralRepository(dbConn, log)

	authService := authsvc.NewService(
		dbConn,
		userRepo,
		referralRepo,
		authsvc.NewRedisCodeStore(rdb),
		authsvc.NewLogSender(log),
		cfg.JWT.Secret,
		log,
	)
	taskService := tasksvc.NewService(taskRepo, publisher, log)

	authHandler := handler.NewAuthHandler(authService, log)
	taskHandler := handler.NewTaskHandler(taskService, log)
	router := httpserver.NewRouter(authHandler, taskHandler, cfg.JWT.Secret, log, dbConn, publisher)

	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("taskd is fully initialized and running", zap.String("http_port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down taskd gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("taskd shutdown complete")
}
