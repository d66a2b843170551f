// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"propguard-workers/internal/bootstrap"
	"propguard-workers/internal/common/aws"
	"propguard-workers/internal/common/camunda"
	"propguard-workers/internal/common/config"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/common/observability"
	"propguard-workers/internal/matching"

	// Search Workers (5)
	fsl "propguard-workers/internal/workers/search/find-similar-listings"
	fl "propguard-workers/internal/workers/search/filter-listings"
	rl "propguard-workers/internal/workers/search/rank-listings"
	scl "propguard-workers/internal/workers/search/score-listings"
	sl "propguard-workers/internal/workers/search/search-listings"

	// Data Access Workers (2)
	qli "propguard-workers/internal/workers/data-access/query-listing-index"
	ql "propguard-workers/internal/workers/data-access/query-listings"

	// Profile Workers (3)
	lup "propguard-workers/internal/workers/profile/load-user-profile"
	ss "propguard-workers/internal/workers/profile/save-search"
	uup "propguard-workers/internal/workers/profile/update-user-preferences"

	// Communication Workers (1)
	sma "propguard-workers/internal/workers/communication/send-match-alert"
)

type registration struct {
	taskType string
	handler  camunda.JobHandler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.ForService(logger.New(cfg.Logging.Level, cfg.Logging.Format), "worker-manager")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if err := cfg.RequireWorkers(); err != nil {
		zapLog.Fatal("incomplete worker configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.NewWithOptions(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	validator, err := bootstrap.LoadValidator(cfg.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err), zap.String("path", cfg.RegistryPath))
	}

	scorer, err := bootstrap.ScorerFromConfig(cfg.Matching)
	if err != nil {
		zapLog.Fatal("invalid matching configuration", zap.Error(err))
	}

	infra, err := bootstrap.Connect(ctx, cfg, bootstrap.ConnectOptions{Elasticsearch: true, Attempts: 15}, log)
	if err != nil {
		zapLog.Fatal("storage connection failed", zap.Error(err))
	}
	defer infra.Close()

	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig: &camunda.RetryConfig{
			MaxRetries: 10,
			BaseDelay:  2 * time.Second,
			MaxDelay:   30 * time.Second,
		},
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("zeebe client connected", zap.String("gateway", cfg.Camunda.BrokerAddress))

	var sesClient aws.SESService
	var snsClient aws.SNSService
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.Notifications.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if cfg.Notifications.Email.Enabled {
			sesClient = aws.NewSESClient(awsCfg)
		}
		if cfg.Notifications.SMS.Enabled {
			snsClient = aws.NewSNSClient(awsCfg)
		}
	}

	var workers []*camunda.CamundaWorker
	for _, reg := range registrations(cfg, scorer, infra, sesClient, snsClient, log) {
		if !config.IsWorkerEnabled(cfg, reg.taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": reg.taskType})
			continue
		}
		wc := config.GetWorkerConfig(cfg, reg.taskType)
		w := camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
			TaskType:      reg.taskType,
			MaxJobsActive: wc.MaxJobsActive,
			Validator:     validator,
			Observability: obs,
		}, reg.handler, log)
		w.Start()
		workers = append(workers, w)
	}
	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	health := healthServer(cfg.Observability.HealthAddress, func(ctx context.Context) error {
		if err := infra.Ready(ctx); err != nil {
			return err
		}
		return zeebe.HealthCheck(ctx)
	})
	go func() {
		log.Info("health server listening", map[string]interface{}{"address": health.Addr})
		if err := health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", map[string]interface{}{"error": err})
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := health.Shutdown(shutdownCtx); err != nil {
		log.Warn("health server shutdown", map[string]interface{}{"error": err})
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Warn("observability shutdown", map[string]interface{}{"error": err})
	}
	log.Info("worker manager stopped", nil)
}

func registrations(cfg *config.Config, scorer *matching.Scorer, infra *bootstrap.Infra, ses aws.SESService, sns aws.SNSService, log logger.Logger) []registration {
	stores := infra.Stores
	wc := func(taskType string) config.WorkerConfig { return config.GetWorkerConfig(cfg, taskType) }

	return []registration{
		{fl.TaskType, fl.NewHandler(fl.NewConfig(wc(fl.TaskType)), log)},
		{scl.TaskType, scl.NewHandler(scl.NewConfig(wc(scl.TaskType)), scorer, stores.Profiles, log)},
		{rl.TaskType, rl.NewHandler(rl.NewConfig(wc(rl.TaskType), cfg.Matching), log)},
		{sl.TaskType, sl.NewHandler(sl.NewConfig(wc(sl.TaskType), cfg.Matching),
			matching.NewPipeline(scorer), stores.Listings, stores.Profiles, log)},
		{fsl.TaskType, fsl.NewHandler(fsl.NewConfig(wc(fsl.TaskType)), stores.Listings, log)},

		{ql.TaskType, ql.NewHandler(ql.NewConfig(wc(ql.TaskType), cfg.Matching), stores.Listings, log)},
		{qli.TaskType, qli.NewHandler(qli.NewConfig(wc(qli.TaskType)), infra.Elasticsearch, log)},

		{lup.TaskType, lup.NewHandler(lup.NewConfig(wc(lup.TaskType)), stores.Profiles, stores.SavedSearches, log)},
		{uup.TaskType, uup.NewHandler(uup.NewConfig(wc(uup.TaskType)), stores.Profiles, log)},
		{ss.TaskType, ss.NewHandler(ss.NewConfig(wc(ss.TaskType)), stores.SavedSearches, log)},

		{sma.TaskType, sma.NewHandler(sma.NewConfig(wc(sma.TaskType), cfg.Notifications), stores.Contacts, ses, sns, log)},
	}
}

func healthServer(addr string, ready func(context.Context) error) *http.Server {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, `{"status":"unavailable","error":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
}
