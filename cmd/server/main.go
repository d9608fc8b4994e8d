package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/strength-tracker/internal/api"
	"alcyxob/strength-tracker/internal/app"
	"alcyxob/strength-tracker/internal/config"
	"alcyxob/strength-tracker/internal/logging"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// @title Strength Tracker API
// @version 1.0
// @description API for logging strength-training sessions and body measurements.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.Log.File,
		LogToStdout:   cfg.Log.ToStdout,
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
	})
	log.Info("starting strength tracker server")

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Store and services ---
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	tracker, err := app.New(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("could not initialise: %v", err)
	}
	defer tracker.Close()
	tracker.Start()

	router := api.NewRouter(api.Services{
		Auth:         tracker.Auth,
		Workouts:     tracker.Workouts,
		Editors:      tracker.Editors,
		Measurements: tracker.Measurements,
		Transfer:     tracker.Transfer,
		Metrics:      tracker.Metrics,
		Gatherer:     tracker.Registry,
	})

	// --- Start HTTP Server ---
	// No WriteTimeout: the workouts stream holds its response open.
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("address", cfg.Server.Address).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("server forced to shut down")
	}
	log.Info("server exiting")
}
