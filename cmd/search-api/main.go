// cmd/search-api/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"propguard-workers/internal/api"
	"propguard-workers/internal/bootstrap"
	"propguard-workers/internal/common/config"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/common/observability"
	"propguard-workers/internal/matching"
	fsl "propguard-workers/internal/workers/search/find-similar-listings"
	sl "propguard-workers/internal/workers/search/search-listings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.ForService(logger.New(cfg.Logging.Level, cfg.Logging.Format), "search-api")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.NewWithOptions(observability.Options{
		ServiceName:    cfg.Observability.ServiceName + "-api",
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	scorer, err := bootstrap.ScorerFromConfig(cfg.Matching)
	if err != nil {
		zapLog.Fatal("invalid matching configuration", zap.Error(err))
	}

	infra, err := bootstrap.Connect(ctx, cfg, bootstrap.ConnectOptions{}, log)
	if err != nil {
		zapLog.Fatal("storage connection failed", zap.Error(err))
	}
	defer infra.Close()

	stores := infra.Stores
	search := sl.NewHandler(sl.NewConfig(config.GetWorkerConfig(cfg, sl.TaskType), cfg.Matching),
		matching.NewPipeline(scorer), stores.Listings, stores.Profiles, log)
	similar := fsl.NewHandler(fsl.NewConfig(config.GetWorkerConfig(cfg, fsl.TaskType)), stores.Listings, log)

	server := api.NewServer(api.Options{
		Search:        search,
		Similar:       similar,
		Profiles:      stores.Profiles,
		Scorer:        scorer,
		Ready:         infra.Ready,
		RateLimit:     cfg.API.RateLimit,
		TrustProxy:    cfg.API.TrustForwardedFor,
		AccessLog:     zap.NewStdLog(zapLog.Named("access")).Writer(),
		Observability: obs,
		Logger:        log,
	})
	if l := server.Limiter(); l != nil {
		go l.Run(ctx)
	}

	srv := server.HTTPServer(cfg.API)
	go func() {
		log.Info("search api listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("search api failed", map[string]interface{}{"error": err})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down search api", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.API.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", map[string]interface{}{"error": err})
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Warn("observability shutdown", map[string]interface{}{"error": err})
	}
}
