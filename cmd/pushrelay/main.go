package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "taskmanagerx/internal/contracts/mq"
	"taskmanagerx/internal/relay"
	"taskmanagerx/internal/relay/mqhandler"
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

	log.Info("Starting pushrelay...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
	)

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	subRepo := repository.NewSubscriptionRepository(dbConn, log)
	sender := relay.NewWebPushSender(cfg.Push)
	broadcaster := relay.NewBroadcaster(subRepo, sender, log)

	taskChangedHandler := mqhandler.NewTaskChangedHandler(broadcaster, log)
	notificationHandler := mqhandler.NewNotificationRequestHandler(broadcaster, log)

	log.Info("Initializing MQ consumer for task.changed...",
		zap.String("queue", "pushrelay.task.changed.q"),
		zap.String("routing_key", mqcontracts.RoutingKeyTaskChanged),
	)
	changedConsumer, err := mq.NewConsumer(cfg.MQ.URL, "pushrelay.task.changed.q", mqcontracts.RoutingKeyTaskChanged, log)
	if err != nil {
		log.Fatal("Failed to init task.changed consumer", zap.Error(err))
	}
	defer changedConsumer.Stop()
	changedConsumer.SetHandler(taskChangedHandler.Handle)

	go func() {
		log.Info("Starting task.changed consumer...")
		if err := changedConsumer.StartConsuming(); err != nil {
			log.Fatal("task.changed consumer failed", zap.Error(err))
		}
	}()

	log.Info("Initializing MQ consumer for notification.request...",
		zap.String("queue", "pushrelay.notification.request.q"),
		zap.String("routing_key", mqcontracts.RoutingKeyNotificationRequest),
	)
	requestConsumer, err := mq.NewConsumer(cfg.MQ.URL, "pushrelay.notification.request.q", mqcontracts.RoutingKeyNotificationRequest, log)
	if err != nil {
		log.Fatal("Failed to init notification.request consumer", zap.Error(err))
	}
	defer requestConsumer.Stop()
	requestConsumer.SetHandler(notificationHandler.Handle)

	go func() {
		log.Info("Starting notification.request consumer...")
		if err := requestConsumer.StartConsuming(); err != nil {
			log.Fatal("notification.request consumer failed", zap.Error(err))
		}
	}()

	relayHandler := relay.NewHandler(subRepo, broadcaster, log)
	router := relay.NewRouter(relayHandler, log, dbConn, changedConsumer)

	port := config.GetEnv("RELAY_PORT", "3000")
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

	log.Info("pushrelay is fully initialized and running", zap.String("http_port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down pushrelay gracefully...")

	log.Info("Stopping MQ consumers...")
	changedConsumer.Stop()
	requestConsumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("pushrelay shutdown complete")
}
