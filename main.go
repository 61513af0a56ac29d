package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"epinet/internal"
	"epinet/internal/api"
	"epinet/internal/config"
	"epinet/internal/container"
	"epinet/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.DefaultLogger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create dependency injection container
	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	// Database is optional; without it summaries go to files only
	if err := appContainer.ConnectDatabase(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	hub := appContainer.EnableStreaming()

	// Admin server: health, pprof and rendered reports
	var pinger ui.Pinger
	if appContainer.DB != nil {
		pinger = appContainer.DB
	}
	admin := &http.Server{
		Addr: ":" + appConfig.Profiling.Port,
		Handler: ui.NewApp(ui.Config{
			Port:      appConfig.Profiling.Port,
			Profiling: appConfig.Profiling.Enabled,
		}, appContainer.SummaryRepository(), pinger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("admin server starting on :%s (pprof enabled: %t)", appConfig.Profiling.Port, appConfig.Profiling.Enabled)
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server failed: %v", err)
		}
	}()

	// API server
	gin.SetMode(appConfig.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if appConfig.Server.GinMode != gin.ReleaseMode {
		router.Use(gin.Logger())
	}
	handler := api.NewHandler(ctx, appContainer.Batches, appContainer.Presets, appContainer.SummaryRepository(), hub,
		api.Defaults{Trials: appConfig.Simulation.Trials, MasterSeed: appConfig.Simulation.MasterSeed}, logger)
	handler.Register(router)

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("epinet API listening on :%s (sinks: %v)", appConfig.Server.Port, appContainer.SinkNames())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("API shutdown: %v", err)
	}
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin shutdown: %v", err)
	}
}
