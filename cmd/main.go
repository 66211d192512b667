package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/cdtimeline/internal/adapters/http/api"
	"github.com/okian/cdtimeline/internal/adapters/http/swagger"
	service "github.com/okian/cdtimeline/internal/app"
	"github.com/okian/cdtimeline/internal/config"
	"github.com/okian/cdtimeline/pkg/logger"
	"github.com/okian/cdtimeline/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Our metrics live on a private registry; keep the default one free of
	// the Go and process collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the listener fails.
func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, mux, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	go runMetricsUpdaters(ctx, svc, systemMetricsInterval, serviceMetricsInterval)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// build creates the timeline session from cfg and registers every route.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, *http.ServeMux, error) {
	svc, err := service.New(ctx,
		service.WithLogger(log.Named("service")),
		service.WithAbilities(cfg.RegistryAbilities()...),
		service.WithTimelineLength(cfg.TimelineLength),
		service.WithIdempotencyCacheSize(cfg.IdempotencyCacheSize),
		service.WithTimelineCache(cfg.CacheTimelines),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create service: %w", err)
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return svc, mux, nil
}

// runMetricsUpdaters refreshes system and session gauges on their own
// intervals until ctx is done.
func runMetricsUpdaters(ctx context.Context, svc *service.Service, systemEvery, serviceEvery time.Duration) {
	system := time.NewTicker(systemEvery)
	defer system.Stop()
	session := time.NewTicker(serviceEvery)
	defer session.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-system.C:
			updateSystemMetrics()
		case <-session.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics copies the session counters into gauges.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if events, ok := stats["events"].(int); ok {
		metrics.UpdateTrackedEvents(events)
	}
	if abilities, ok := stats["abilities"].(int); ok {
		metrics.UpdateRegisteredAbilities(abilities)
	}
	if length, ok := stats["timelineLength"].(int); ok {
		metrics.UpdateTimelineLength(length)
	}
}
