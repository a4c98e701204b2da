package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AngelCh415/lp-report/internal/cache"
	"github.com/AngelCh415/lp-report/internal/config"
	"github.com/AngelCh415/lp-report/internal/httpx"
	"github.com/AngelCh415/lp-report/internal/ingest"
	"github.com/AngelCh415/lp-report/internal/metrics"
	"github.com/AngelCh415/lp-report/internal/scheduler"
	"github.com/AngelCh415/lp-report/internal/store"
	"github.com/AngelCh415/lp-report/internal/telemetry"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tm := telemetry.New()

	backend, err := openCache(cfg)
	if err != nil {
		// sin cache se sigue funcionando, solo sin SWR entre reinicios
		logger.Warn("cache backend unavailable, using memory", slog.String("backend", cfg.CacheBackend), slog.String("err", err.Error()))
		backend = cache.NewMemoryStore()
	}
	defer backend.Close()
	c := cache.New(backend, logger,
		cache.WithRetention(cfg.CacheRetention),
		cache.WithTimeout(cfg.CacheTimeout),
		cache.WithRecorder(tm))

	api, err := ingest.NewSheetsAPI(ctx, cfg.SheetsAPIKey)
	if err != nil {
		logger.Error("sheets client", slog.String("err", err.Error()))
		os.Exit(1)
	}
	var values ingest.ValuesGetter
	if api != nil {
		values = api
	} else {
		logger.Warn("GOOGLE_SHEETS_API_KEY not configured, sources fall back to fixtures")
	}
	src := ingest.Sources{
		Conversions: ingest.NewSheet(values, cfg.SpreadsheetID, cfg.SummarySheet, c, tm, logger),
		Costs:       ingest.NewSheet(values, cfg.CostSpreadsheetID, cfg.CostSheet, c, tm, logger),
	}

	st := store.NewMemoryStore(cfg.Assumptions)
	etl := ingest.NewETL(src, ingest.NewHTTPClient(cfg.HTTPTimeout), st, logger, cfg, tm)
	mSvc := metrics.NewService(st)

	// stale-while-revalidate: primero lo cacheado, después la red
	etl.LoadCached(ctx)

	sched := scheduler.New(logger, cfg.HTTPTimeout)
	refresh := scheduler.RefreshJob{ETL: etl}
	if _, err := sched.AddJob(cfg.RefreshSchedule, refresh); err != nil {
		logger.Error("bad REFRESH_SCHEDULE", slog.String("schedule", cfg.RefreshSchedule), slog.String("err", err.Error()))
		os.Exit(1)
	}
	sched.Start()
	go sched.RunNow(refresh)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpx.NewRouter(logger, etl, mSvc, c, tm, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sched.Stop()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", slog.String("port", cfg.Port), slog.String("cache", cfg.CacheBackend))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func openCache(cfg config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "memory":
		return cache.NewMemoryStore(), nil
	case "sqlite", "":
		return cache.OpenSQLite(cfg.CachePath)
	case "redis":
		rs := cache.NewRedisStore(&redis.Options{Addr: cfg.RedisAddr}, "")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.CacheTimeout)
		defer cancel()
		if err := rs.Client.Ping(ctx).Err(); err != nil {
			rs.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
