package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AngelCh415/campaign-analyzer/internal/cache"
	"github.com/AngelCh415/campaign-analyzer/internal/config"
	"github.com/AngelCh415/campaign-analyzer/internal/httpx"
	"github.com/AngelCh415/campaign-analyzer/internal/ingest"
	"github.com/AngelCh415/campaign-analyzer/internal/metrics"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel := telemetry.New()
	st := store.NewMemoryStore()

	var reportCache cache.Cache = cache.Nop{}
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", slog.String("err", err.Error()))
		} else {
			defer rc.Close()
			reportCache = rc
		}
	}

	var src ingest.ObjectSource
	if cfg.S3.Bucket != "" {
		s3src, err := ingest.NewS3SourceFromConfig(ctx, cfg.S3)
		if err != nil {
			logger.Error("s3 source", slog.String("err", err.Error()))
			os.Exit(1)
		}
		src = s3src
	}

	p := ingest.NewPipeline(ingest.NewHTTPClient(cfg.HTTPTimeout), st, src, logger, tel, cfg)
	svc := metrics.NewService(st, reportCache, logger, tel)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpx.NewRouter(httpx.Deps{
			Log: logger, Cfg: cfg, Pipeline: p, Store: st, Service: svc, Tel: tel,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", slog.String("err", err.Error()))
		}
	}()

	logger.Info("starting server",
		slog.String("port", cfg.Port),
		slog.Bool("s3", src != nil),
		slog.Int("source_urls", len(cfg.Ingest.SourceURLs)),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
