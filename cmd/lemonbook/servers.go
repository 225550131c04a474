package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lemonbook/internal/lemonapi"
	"lemonbook/internal/metrics"
)

// startMonitoring launches the health server and, when enabled, the metrics
// server. Both stop when ctx ends.
func (a *app) startMonitoring(ctx context.Context, api *lemonapi.Client, rdb *redis.Client) {
	mon := &a.cfg.Monitoring
	if mon.HealthCheckPort == 0 {
		mon.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, mon.HealthCheckPort, api, rdb, &a.logger)

	if mon.PrometheusEnabled {
		if mon.PrometheusPort == 0 {
			mon.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, mon.PrometheusPort, &a.logger)
	}
}

func healthHandler(ctx context.Context, api *lemonapi.Client, rdb *redis.Client) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if err := api.HealthCheck(ctxPing); err != nil {
			http.Error(w, "api not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}

func startHealthServer(ctx context.Context, port int, api *lemonapi.Client, rdb *redis.Client, logger *zerolog.Logger) {
	serve(ctx, port, healthHandler(ctx, api, rdb), "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, port, mux, "metrics", logger)
}

func serve(ctx context.Context, port int, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Int("port", port).Msgf("%s server listening", name)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}
