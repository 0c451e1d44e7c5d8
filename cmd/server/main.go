// Package main is the entrypoint for the PawLogic API server.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kiranshivaraju/pawlogic/internal/api"
	"github.com/kiranshivaraju/pawlogic/internal/api/handler"
	mw "github.com/kiranshivaraju/pawlogic/internal/api/middleware"
	"github.com/kiranshivaraju/pawlogic/internal/api/response"
	"github.com/kiranshivaraju/pawlogic/internal/cache"
	"github.com/kiranshivaraju/pawlogic/internal/config"
	"github.com/kiranshivaraju/pawlogic/internal/detection"
	"github.com/kiranshivaraju/pawlogic/internal/logging"
	"github.com/kiranshivaraju/pawlogic/internal/metrics"
	"github.com/kiranshivaraju/pawlogic/internal/store"
	"github.com/kiranshivaraju/pawlogic/internal/taxonomy"
)

const (
	shutdownTimeout    = 30 * time.Second
	healthCheckTimeout = 2 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pawlogic: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("database_driver", cfg.Database.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Taxonomy
	tax, err := taxonomy.LoadFile(cfg.Detection.TaxonomyPath)
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}
	logger.Info("taxonomy loaded", zap.Strings("species", tax.SpeciesNames()))

	// 3. Store (migrations run inside Open)
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("database ready")

	// 4. Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis connected")

	// 5. Services
	m := metrics.New(prometheus.DefaultRegisterer)
	detector := detection.NewService(st, redisCache, m, logger, cfg.Detection)

	// 6. Router
	router := api.NewRouter(api.Dependencies{
		Logger:    logger,
		Metrics:   m,
		Auth:      mw.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute, logger),

		HealthHandler:   healthHandler(st, redisCache),
		MetricsHandler:  promhttp.Handler(),
		TaxonomyHandler: handler.NewTaxonomyHandler(tax),

		CreatePetHandler: handler.NewCreatePetHandler(st, tax),
		GetPetHandler:    handler.NewGetPetHandler(st),

		CreateIncidentHandler: handler.NewCreateIncidentHandler(st, tax, time.Now),
		ListIncidentsHandler:  handler.NewListIncidentsHandler(st),

		ListInsightsHandler:   handler.NewListInsightsHandler(st),
		InsightSummaryHandler: handler.NewInsightSummaryHandler(st),
		GetInsightHandler:     handler.NewGetInsightHandler(st),
		MarkInsightHandler:    handler.NewMarkInsightHandler(st),

		DetectPatternsHandler:   handler.NewDetectPatternsHandler(detector),
		TriggerDetectionHandler: handler.NewTriggerDetectionHandler(detector),
		GetJobHandler:           handler.NewGetJobHandler(detector),
	})

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Background detection runs own their status rows; let them finish.
	done := make(chan struct{})
	go func() {
		detector.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("detection jobs still running at shutdown")
	}

	logger.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}
		if err := s.Ping(ctx); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(ctx); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
