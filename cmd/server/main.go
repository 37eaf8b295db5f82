// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/civicledger/IPRx-Core/internal/config"
	"github.com/civicledger/IPRx-Core/internal/database"
	"github.com/civicledger/IPRx-Core/internal/events"
	"github.com/civicledger/IPRx-Core/internal/i18n"
	"github.com/civicledger/IPRx-Core/internal/metrics"
	"github.com/civicledger/IPRx-Core/internal/router"
	"github.com/civicledger/IPRx-Core/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogging(cfg)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	if err := i18n.Initialize(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	publisher := newPublisher(cfg.Kafka)
	svc := services.New(db, cfg, publisher, metrics.NewRegistry())
	defer func() {
		if err := svc.Notifications.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close event publisher")
		}
	}()

	ctx := context.Background()
	if err := svc.Registry.RegisterCoreComponents(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to register core components")
	}
	if cfg.Seed.Enabled {
		if err := svc.SeedDemoData(ctx, cfg.Seed); err != nil {
			logrus.WithError(err).Fatal("Failed to seed demo data")
		}
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.Initialize(cfg, svc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"owner": cfg.Ledger.Owner().Hex(),
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
		return
	}

	logrus.Info("Server exited")
}

func configureLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// newPublisher always logs events and also writes them to Kafka when
// brokers are configured.
func newPublisher(cfg config.KafkaConfig) events.Publisher {
	logPublisher := events.NewLogPublisher(logrus.StandardLogger())
	if !cfg.Enabled() {
		return logPublisher
	}
	logrus.WithFields(logrus.Fields{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	}).Info("Publishing order events to Kafka")
	return events.NewMultiPublisher(logPublisher, events.NewKafkaPublisher(cfg.Brokers, cfg.Topic))
}
