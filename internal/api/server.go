// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"propguard-workers/internal/common/config"
	"propguard-workers/internal/common/logger"
	"propguard-workers/internal/common/metrics"
	"propguard-workers/internal/common/observability"
	"propguard-workers/internal/matching"
	"propguard-workers/internal/models"
	findsimilarlistings "propguard-workers/internal/workers/search/find-similar-listings"
	searchlistings "propguard-workers/internal/workers/search/search-listings"
)

const maxBodyBytes = 4 << 20

type Searcher interface {
	Execute(ctx context.Context, input *searchlistings.Input) (*searchlistings.Output, error)
}

type SimilarFinder interface {
	Execute(ctx context.Context, input *findsimilarlistings.Input) (*findsimilarlistings.Output, error)
}

type ProfileLoader interface {
	Load(ctx context.Context, userID string) (*models.UserProfile, bool, error)
}

// Options wires a Server. Search and Similar are required; Profiles may be
// nil, in which case scoring needs an inline profile.
type Options struct {
	Search        Searcher
	Similar       SimilarFinder
	Profiles      ProfileLoader
	Scorer        *matching.Scorer
	Ready         func(ctx context.Context) error
	RateLimit     config.RateLimitConfig
	TrustProxy    bool
	AccessLog     io.Writer
	Observability *observability.Observability
	Logger        logger.Logger
}

type Server struct {
	router  *mux.Router
	opts    Options
	limiter *RateLimiter
	scorer  *matching.Scorer
	logger  logger.Logger
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.AccessLog == nil {
		opts.AccessLog = os.Stdout
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = matching.NewScorer(matching.DefaultWeights(), nil)
	}

	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
		scorer: scorer,
		logger: opts.Logger.WithFields(map[string]interface{}{"component": "search-api"}),
	}
	if opts.RateLimit.Enabled {
		s.limiter = NewRateLimiter(opts.RateLimit, opts.TrustProxy)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(s.instrument)
	if s.limiter != nil {
		v1.Use(s.limiter.Middleware)
	}
	v1.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	v1.HandleFunc("/listings/filter", s.handleFilter).Methods(http.MethodPost)
	v1.HandleFunc("/listings/score", s.handleScore).Methods(http.MethodPost)
	v1.HandleFunc("/listings/sort", s.handleSort).Methods(http.MethodPost)
	v1.HandleFunc("/listings/{id}/similar", s.handleSimilar).Methods(http.MethodGet)
}

// Handler returns the router behind access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(handlers.CombinedLoggingHandler(s.opts.AccessLog, s.router))
}

// Limiter is nil when rate limiting is disabled.
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

// HTTPServer builds an http.Server for addr using the API timeouts.
func (s *Server) HTTPServer(cfg config.APIConfig) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.APIRequests.WithLabelValues(route, r.Method, fmt.Sprint(rec.status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type recoveryLogger struct {
	log logger.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error("panic recovered", map[string]interface{}{"panic": fmt.Sprint(v...)})
}
