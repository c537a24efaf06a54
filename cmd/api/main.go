// Command api runs the solarcast HTTP service: monthly solar yield
// estimates from short-range weather forecasts.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"solarcast/internal/api/handlers"
	"solarcast/internal/config"
	"solarcast/internal/core"
	"solarcast/internal/features"
	"solarcast/internal/meteo"
	"solarcast/internal/model"
	"solarcast/internal/predict"
)

const shutdownGracePeriod = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing or corrupt artifact leaves the service running degraded:
	// /health reports unhealthy and predictions fail with a typed error,
	// but the process stays up.
	var predictor model.Predictor
	var refLat, refLon float64
	forest, err := model.Load(cfg.Model.Path)
	if err != nil {
		logger.Error("model artifact unavailable, predictions disabled",
			slog.String("path", cfg.Model.Path),
			slog.String("error", err.Error()),
		)
	} else {
		predictor = forest
		refLat, refLon = forest.ReferenceLat, forest.ReferenceLon
		logger.Info("model artifact loaded",
			slog.String("path", cfg.Model.Path),
			slog.Int("trees", len(forest.Trees)),
			slog.Time("trained_at", forest.TrainedAt),
		)
	}

	forecastClient := meteo.NewClient(cfg.Forecast, &http.Client{Timeout: cfg.Forecast.Timeout})
	builder := features.NewBuilder(logger, refLat, refLon)
	service := predict.NewService(forecastClient, builder, predictor, logger)

	server, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	predictHandler := handlers.NewPredictHandler(service, server.Validator, logger)
	server.V1RouteRegistrars = []func(chi.Router){
		predictHandler.RegisterRoutes,
	}
	server.HealthProbes = []core.HealthProbe{
		modelProbe{predictor: predictor},
	}
	server.MountRoutes()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", httpServer.Addr),
			slog.String("environment", cfg.Environment),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String("service", cfg.Service),
		slog.String("environment", cfg.Environment),
	)
}

// modelProbe reports whether the prediction model is loaded.
type modelProbe struct {
	predictor model.Predictor
}

func (p modelProbe) Name() string { return "model" }

func (p modelProbe) Check(ctx context.Context) error {
	if p.predictor == nil {
		return errors.New("model artifact not loaded")
	}
	return nil
}
