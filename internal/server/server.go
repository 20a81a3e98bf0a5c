// Package server exposes elections and congruency checks over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tordrt/cfelect/internal/election"
	"github.com/tordrt/cfelect/internal/logger"
	"github.com/tordrt/cfelect/internal/metrics"
	"github.com/tordrt/cfelect/internal/stream"
)

// Service is what the HTTP surface needs from a coordinator
type Service interface {
	Keyspaces(ctx context.Context) ([]string, error)
	ElectColumnFamilies(ctx context.Context, keyspace string, op stream.Operation) (election.ColumnFamilySet, error)
	Explain(ctx context.Context, keyspace string, op stream.Operation) (*election.Explanation, error)
	Congruency(ctx context.Context, keyspace string) (*election.CongruencyReport, error)
	IsViewCongruentToBase(ctx context.Context, keyspace, view string) (bool, error)
}

// Options configures the HTTP server
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Registry serves /metrics. Defaults to the global prometheus registry.
	Registry *prometheus.Registry
}

type Server struct {
	svc     Service
	opts    Options
	handler http.Handler
	log     *zap.Logger
}

// New builds the router. The election metrics are registered with
// opts.Registry.
func New(svc Service, opts Options) (*Server, error) {
	s := &Server{
		svc:  svc,
		opts: opts,
		log:  logger.Named("server"),
	}

	var metricsHandler http.Handler
	if opts.Registry != nil {
		if err := metrics.Register(opts.Registry); err != nil {
			return nil, err
		}
		metricsHandler = promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})
	} else {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return nil, err
		}
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", metricsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requestLogger)

		r.Get("/operations", s.operations)
		r.Get("/keyspaces", s.keyspaces)
		r.Route("/keyspaces/{keyspace}", func(r chi.Router) {
			r.Get("/elect", s.elect)
			r.Get("/explain", s.explain)
			r.Get("/congruency", s.congruency)
			r.Get("/views/{view}/congruency", s.viewCongruency)
		})
	})

	s.handler = r
	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// requestLogger logs each request and scopes a request logger into its context
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		log := s.log.With(zap.String("request_id", middleware.GetReqID(r.Context())))
		next.ServeHTTP(ww, r.WithContext(logger.ToContext(r.Context(), log)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Info("request",
			logger.Method(r.Method), logger.Path(r.URL.Path),
			logger.Status(status), logger.Duration(time.Since(start)))
	})
}
