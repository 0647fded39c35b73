// Package main initializes and starts the download gateway server,
// setting up configuration, logging, the database connection, the
// relay client, the job orchestrator, and HTTP handlers.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/ZyrticX/MP4/internal/config"
	"github.com/ZyrticX/MP4/internal/db"
	"github.com/ZyrticX/MP4/internal/jd"
	"github.com/ZyrticX/MP4/internal/logger"
	"github.com/ZyrticX/MP4/internal/repository"
	"github.com/ZyrticX/MP4/internal/server/handler/http"
	"github.com/ZyrticX/MP4/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer func() { _ = postgresDB.Close() }()

	// Initialize the job repository.
	jobRepo := repository.NewPostgresJobRepository(postgresDB)

	// Initialize the relay client.
	client := jd.NewClient(jd.Config{
		Endpoint:   options.RelayEndpoint,
		Email:      options.RelayEmail,
		Password:   options.RelayPassword,
		AppKey:     options.AppKey,
		DeviceName: options.DeviceName,
	}, zapLogger)

	// Initialize the download orchestrator.
	downloads := service.NewDownloadService(client, jobRepo, zapLogger, service.Options{
		DownloadPath:        options.DownloadPath,
		CrawlInterval:       options.CrawlPollInterval,
		CrawlTimeout:        options.CrawlTimeout,
		MonitorInterval:     options.MonitorInterval,
		MonitorFailureLimit: options.MonitorFailureLimit,
	})

	// Fail any jobs a previous process left in flight.
	if err := downloads.ResumeInterrupted(context.Background()); err != nil {
		zapLogger.Fatal("cannot sweep interrupted jobs", zap.Error(err))
	}

	// Establish the relay session and bind the device up front, so a
	// misconfigured account fails the boot instead of the first job.
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	if err := client.EnsureConnected(connectCtx); err != nil {
		cancelConnect()
		zapLogger.Fatal("cannot connect to relay", zap.Error(err))
	}
	cancelConnect()

	// Create HTTP handlers and build the router.
	downloadHandler := &http.DownloadHandler{DownloadService: downloads}
	router := http.NewRouter(downloadHandler, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for a shutdown signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLogger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown", zap.Error(err))
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		zapLogger.Warn("relay disconnect", zap.Error(err))
	}
}
