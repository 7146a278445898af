package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/pedocs-forecast/internal/api/http"
	"github.com/i474232898/pedocs-forecast/internal/config"
	"github.com/i474232898/pedocs-forecast/internal/logging"
	"github.com/i474232898/pedocs-forecast/internal/scheduler"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /predict and GET /health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	started := time.Now()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogVerbosity)

	p := buildPipeline(cfg, logger)
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error(err, "error releasing resources")
		}
	}()

	// Scheduler that drops expired weather responses.
	if p.purger != nil {
		sched := scheduler.New(p.purger, cfg.CachePurgeInterval, logger)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	app := httpapi.NewApp(httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		Logger:          logger.WithName("http"),
	}, p.service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	logger.Info("listening", "port", cfg.Port, "origins", cfg.AllowedOrigins, "model", cfg.ModelPath)
	log.Printf("INFO: app startup took %.2f seconds", time.Since(started).Seconds())

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}
