package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"alcyxob/health-tracker/internal/api"
	"alcyxob/health-tracker/internal/app"
	"alcyxob/health-tracker/internal/config"
	"alcyxob/health-tracker/internal/logging"
)

// @title Health Tracker API
// @version 1.0
// @description Meal logging, daily food log and weekly workout checklist.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("could not load config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting Health Tracker Server...")
	if cfg.JWT.Secret == "" {
		log.Fatal("jwt.secret must be set for the HTTP server")
	}

	// --- Storage, Classifier and Services ---
	initCtx, cancelInit := context.WithTimeout(context.Background(), time.Minute)
	tracker, err := app.New(initCtx, cfg, log, app.Options{})
	cancelInit()
	if err != nil {
		log.WithError(err).Fatal("could not initialize services")
	}
	defer func() {
		log.Info("Closing storage...")
		if err := tracker.Close(); err != nil {
			log.WithError(err).Error("failed to close storage")
		}
	}()
	log.WithField("backend", cfg.Storage.Backend).Info("Services initialized.")

	// --- Initialize Gin Engine ---
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api.SetupRoutes(router, api.Deps{
		JWTSecret:          cfg.JWT.Secret,
		RateLimitPerSecond: cfg.Server.RateLimitPerSecond,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
		Log:                log,
		Tracking:           tracker.Tracking,
		Checklist:          tracker.Checklist,
		Profiles:           tracker.Profiles,
		Export:             tracker.Export,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.WithField("address", cfg.Server.Address).Info("Server starting")

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("ListenAndServe error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// In-flight requests get 5 seconds to finish.
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exiting.")
}
