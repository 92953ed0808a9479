package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskmanagerx/internal/reminder"
	"taskmanagerx/internal/repository"
	"taskmanagerx/pkg/config"
	"taskmanagerx/pkg/db"
	"taskmanagerx/pkg/logger"
	"taskmanagerx/pkg/mq"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load(config.GetConfigEnv(), "")
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	interval := time.Duration(cfg.Reminder.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	window := time.Duration(cfg.Reminder.WindowHours) * time.Hour
	if window <= 0 {
		window = 24 * time.Hour
	}

	log.Info("Starting reminderd...",
		zap.Duration("interval", interval),
		zap.Duration("window", window),
	)

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	taskRepo := repository.NewTaskRepository(dbConn, log)
	orchestrator := reminder.NewOrchestrator(taskRepo, publisher, window, log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down reminderd gracefully...")
		cancel()
	}()

	orchestrator.Run(ctx, interval)

	log.Info("reminderd shutdown complete")
}
