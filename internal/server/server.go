package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/Nzyazin/momopay/internal/core/handler"
	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/core/metrics"
	httpmw "github.com/Nzyazin/momopay/internal/core/middleware"
	"github.com/Nzyazin/momopay/internal/core/repository/postgres"
	"github.com/Nzyazin/momopay/internal/core/usecase"
	"github.com/Nzyazin/momopay/internal/integrations/momo"
	"github.com/Nzyazin/momopay/pkg/config"
	"github.com/Nzyazin/momopay/pkg/postgresdb"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpmetrics "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
)

type Server struct {
	router     *mux.Router
	log        logger.Logger
	mu          sync.Mutex
	httpServer  *http.Server
	adminServer *http.Server
	db         *postgresdb.Database
	sweeper    *usecase.PendingSweeper
}

// Handlers groups everything the API router serves besides /metrics.
type Handlers struct {
	Payment     *handler.PaymentHandler
	Transaction *handler.TransactionHandler
	System      *handler.SystemHandler
}

func NewServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Server, error) {
	db, err := postgresdb.NewPostgresDB(cfg.DB, log)
	if err != nil {
		return nil, err
	}

	if err := postgres.EnsureSchema(ctx, db.DB); err != nil {
		db.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	transactionRepository := postgres.NewPostgresTransactionRepo(db.DB, log)
	momoClient := momo.NewClient(cfg.Momo, log)

	paymentUsecase := usecase.NewPaymentUsecase(transactionRepository, momoClient, cfg.Momo, appMetrics, log)
	transactionUsecase := usecase.NewTransactionUsecase(transactionRepository, log)
	systemUsecase := usecase.NewSystemUsecase(momoClient, cfg.Momo, log)

	handlers := Handlers{
		Payment:     handler.NewPaymentHandler(paymentUsecase, log),
		Transaction: handler.NewTransactionHandler(transactionUsecase, log),
		System:      handler.NewSystemHandler(systemUsecase, log),
	}

	return &Server{
		router:  NewRouter(handlers, registry, log),
		log:     log,
		db:      db,
		sweeper: usecase.NewPendingSweeper(transactionRepository, paymentUsecase, cfg.Sweeper, log),
	}, nil
}

// NewRouter builds the HTTP surface. HTTP metrics and the service counters are
// both exported from registry.
func NewRouter(h Handlers, registry *prometheus.Registry, log logger.Logger) *mux.Router {
	router := mux.NewRouter()

	mdlw := middleware.New(middleware.Config{
		Recorder: httpmetrics.NewRecorder(httpmetrics.Config{Registry: registry}),
	})

	router.Use(
		httpmw.AccessLog(log),
		routeMetrics(mdlw),
		httpmw.Recovery(log),
	)

	h.System.RegisterRoutes(router)
	h.Payment.RegisterRoutes(router)
	h.Transaction.RegisterRoutes(router)

	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return router
}

// NewAdminRouter serves pprof. It is only mounted on the admin listener.
func NewAdminRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	return router
}

// routeMetrics labels requests with the matched route template so that
// reference ids do not end up as label values.
func routeMetrics(mdlw middleware.Middleware) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerID := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					handlerID = tpl
				}
			}
			std.Handler(handlerID, mdlw, next).ServeHTTP(w, r)
		})
	}
}

// Serve starts the admin listener when configured, then blocks serving the API,
// over TLS when a certificate is configured.
func (s *Server) Serve(cfg config.ServerConfig) error {
	if cfg.AdminAddr != "" {
		s.startAdmin(cfg.AdminAddr)
	}
	if cfg.TLSEnabled() {
		return s.RunTLS(cfg.Addr, cfg.TLSCertFile, cfg.TLSKeyFile)
	}
	return s.Run(cfg.Addr)
}

func (s *Server) startAdmin(addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewAdminRouter(),
		ReadHeaderTimeout: 6 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.adminServer = srv
	s.mu.Unlock()

	s.log.Info("Starting admin server", logger.StringField("addr", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Admin server failed", logger.ErrorField("error", err))
		}
	}()
}

func (s *Server) Run(addr string) error {
	if err := s.startBackground(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 6 * time.Second,
	}

	s.setHTTPServer(srv)
	s.log.Info("Starting server", logger.StringField("addr", addr))

	return srv.ListenAndServe()
}

func (s *Server) RunTLS(addr, certFile, keyFile string) error {
	if err := s.startBackground(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 6 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	s.setHTTPServer(srv)
	s.log.Info("Starting TLS server", logger.StringField("addr", addr))

	return srv.ListenAndServeTLS(certFile, keyFile)
}

func (s *Server) setHTTPServer(srv *http.Server) {
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()
}

func (s *Server) startBackground() error {
	if s.sweeper == nil {
		return nil
	}
	return s.sweeper.Start()
}

// Shutdown drains HTTP traffic first, then waits for a running sweep and closes the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer, adminServer := s.httpServer, s.adminServer
	s.mu.Unlock()

	done := make(chan struct{})
	var shutdownErr error

	go func() {
		defer close(done)

		if httpServer != nil {
			if err := httpServer.Shutdown(ctx); err != nil {
				s.log.Error("failed to shutdown HTTP server", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			}
		}

		if adminServer != nil {
			if err := adminServer.Shutdown(ctx); err != nil {
				s.log.Error("failed to shutdown admin server", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("admin server shutdown error: %w", err)
			}
		}

		if s.sweeper != nil {
			if err := s.sweeper.Stop(ctx); err != nil {
				s.log.Error("failed to stop pending sweeper", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("sweeper shutdown error: %w", err)
			}
		}

		if s.db != nil {
			if err := s.db.Close(); err != nil {
				s.log.Error("failed to close database connection", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("database shutdown error: %w", err)
			}
		}
	}()

	select {
	case <-done:
		return shutdownErr
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
