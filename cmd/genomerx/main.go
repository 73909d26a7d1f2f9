// @title        GenomeRx API
// @version      1.0
// @description  Antimicrobial resistance prediction from uploaded genome sequences.
// @BasePath     /
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/OldStager01/genomerx/api"
	"github.com/OldStager01/genomerx/api/handlers"
	"github.com/OldStager01/genomerx/internal/app"
	"github.com/OldStager01/genomerx/internal/events"
	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/internal/metrics"
	"github.com/OldStager01/genomerx/pkg/config"
	"github.com/OldStager01/genomerx/pkg/database/queries"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)
	if cfg.API.JWTSecret == config.DefaultJWTSecret {
		logger.Warn("Using the default JWT secret; set GENOMERX_API_JWT_SECRET")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := app.OpenDatabase(ctx, cfg, *migrate)
	if err != nil {
		return err
	}
	defer db.Close()
	if version, err := db.GetVersion(ctx); err == nil {
		logger.Infof("Database connection established (%s %s)", db.Driver(), version)
	}

	if *migrate {
		logger.Info("Migrations completed successfully")
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	bus := events.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()
	eventLogger := events.NewEventLogger(bus.SubscribeAll())
	eventLogger.Start()
	defer eventLogger.Stop()

	store, err := app.OpenStore(cfg, m)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline, err := app.NewPipeline(cfg, store, m, events.NewPublisher(bus))
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, api.Deps{
		Predictor: pipeline.Aggregator,
		Models:    pipeline.Registry,
		Reports:   queries.NewPredictionRepository(db.DB),
		Users:     queries.NewUserRepository(db.DB),
		Bus:       bus,
		Metrics:   m,
		HealthChecks: []handlers.Check{
			{Name: "database", Fn: db.HealthCheck},
			store.Check,
		},
	})

	var metricsServer *http.Server
	if cfg.Prometheus.Enabled && cfg.Prometheus.Port != cfg.API.Port {
		metricsServer = m.StartServer(cfg.Prometheus.Port)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Metrics server shutdown: %v", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
