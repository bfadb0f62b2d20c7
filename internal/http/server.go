package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ledgerinsight/internal/amqp"
	"ledgerinsight/internal/insight"
	"ledgerinsight/internal/ledger"
	"ledgerinsight/internal/log"
	"ledgerinsight/internal/metrics"
)

// writeLimitPerMinute caps POST requests per client.
const writeLimitPerMinute = 60

// LedgerNotifier announces appended transactions, typically over AMQP.
type LedgerNotifier interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Pinger is implemented by ledgers that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the API server.
type Options struct {
	Ledger   ledger.ReadWriter
	Engine   *insight.Engine
	Notifier LedgerNotifier
	Logger   *log.Logger
	Metrics  bool
}

type Server struct {
	http.Server
	ledger      ledger.ReadWriter
	engine      *insight.Engine
	notifier    LedgerNotifier
	logger      *log.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	engine := opts.Engine
	if engine == nil {
		engine = insight.NewEngine(insight.DefaultOptions(), nil)
	}

	s := &Server{
		ledger:      opts.Ledger,
		engine:      engine,
		notifier:    opts.Notifier,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(writeLimitPerMinute),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(logger))
	r.Use(securityHeaders)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if opts.Metrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/period", s.handlePeriod)
		r.Get("/installments", s.handleInstallments)
		r.Get("/installments/active", s.handleActiveInstallments)
		r.Get("/recurring", s.handleRecurring)
		r.Get("/outliers", s.handleOutliers)
		r.Get("/report", s.handleReport)
		r.With(s.rateLimiter.middleware).Post("/transactions", s.handleCreateTransaction)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		ServiceUnavailableError("ledger not configured").Write(w)
		return
	}
	if p, ok := s.ledger.(Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ServiceUnavailableError("ledger unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}
