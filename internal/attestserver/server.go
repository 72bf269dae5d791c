// Package attestserver exposes internal/attestation.Verify over HTTP,
// fronted by a result cache, a rate limiter, and Prometheus instrumentation.
package attestserver

import (
	"context"
	"crypto/x509"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/r3e-network/sgx-attest-verifier/internal/attestcache"
	"github.com/r3e-network/sgx-attest-verifier/internal/attestmetrics"
)

// Config tunes the HTTP server independently of the process-level
// attestconfig.Config, so the server package stays usable without importing
// the CLI's configuration layer.
type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxFreshness caps accepted report age; zero means uncapped. This is
	// enforced only here, never inside internal/attestation.Verify.
	MaxFreshness time.Duration
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8443"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
}

// Server wires a chi router over the attestation verifier, a cache, and
// Prometheus metrics into a runnable http.Server.
type Server struct {
	cfg    Config
	router *chi.Mux
	http   *http.Server
	cache  *attestcache.Cache
	reg    *prometheus.Registry
	mx     *attestmetrics.Metrics
	log    *zap.Logger

	rootCA *rootCAHolder
}

// New builds a Server. rootCA is the initial pinned IAS root CA certificate;
// the scheduler may later replace it via rootCA.Store.
func New(cfg Config, cache *attestcache.Cache, rootCA *x509.Certificate, log *zap.Logger) *Server {
	cfg.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	mx := attestmetrics.New(reg)

	s := &Server{
		cfg:    cfg,
		cache:  cache,
		reg:    reg,
		mx:     mx,
		log:    log,
		rootCA: newRootCAHolder(rootCA),
	}
	s.initRouter()

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) initRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"POST", "GET"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/verify", s.handleVerify)
	})

	s.router = r
}

// Start runs the HTTP server until it errors or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting attestation server", zap.String("addr", s.cfg.ListenAddr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("attestation server stopped: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("stopping attestation server")
	return s.http.Shutdown(ctx)
}

// Registry exposes the private Prometheus registry, e.g. for the scheduler
// or tests to inspect collected metrics without scraping over HTTP.
func (s *Server) Registry() *prometheus.Registry { return s.reg }
