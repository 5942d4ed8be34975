// Package v1 is the HTTP surface of the bank. Handlers stay thin and leave
// business rules to the registry, account and journal services.
package v1

import (
	"errors"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tinoosan/bank/internal/service/account"
	"github.com/tinoosan/bank/internal/service/journal"
	"github.com/tinoosan/bank/internal/service/registry"
)

type Options struct {
	Registry registry.Service
	Accounts account.Service
	Journal  journal.Service
	Session  SessionConfig
	// Ready is probed by /readyz.
	Ready  []ReadyChecker
	Logger *slog.Logger
	// Metrics receives the HTTP collectors and backs /metrics. Nil uses a
	// private registry.
	Metrics        *prometheus.Registry
	AllowedOrigins []string
}

// Server wires handlers and middleware using Chi.
type Server struct {
	reg      registry.Service
	acc      account.Service
	jrn      journal.Service
	sessions *sessionKeeper
	ready    []ReadyChecker
	promReg  *prometheus.Registry
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil || opts.Accounts == nil || opts.Journal == nil {
		return nil, errors.New("httpapi: registry, accounts and journal services are required")
	}
	keeper, err := newSessionKeeper(opts.Session)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	promReg := opts.Metrics
	if promReg == nil {
		promReg = prometheus.NewRegistry()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(newHTTPMetrics(promReg).middleware)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	s := &Server{
		reg:      opts.Registry,
		acc:      opts.Accounts,
		jrn:      opts.Journal,
		sessions: keeper,
		ready:    opts.Ready,
		promReg:  promReg,
		log:      logger,
		rt:       r,
	}
	s.routes()
	return s, nil
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler(s.promReg))

	// Registry
	s.rt.With(requireJSON, s.validatePostCustomer()).Post("/v1/customers", s.postCustomer)
	s.rt.Get("/v1/customers/{id}", s.getCustomer)
	s.rt.With(requireJSON, s.validatePostAccount()).Post("/v1/accounts", s.postAccount)
	s.rt.With(requireJSON, s.validateOnboarding()).Post("/v1/onboarding", s.postOnboarding)
	s.rt.Get("/v1/dictionary/variants", s.getVariantsDictionary)

	// Reconciliation
	s.rt.Get("/v1/accounts/{number}/reconciliation", s.getAccountReconciliation)
	s.rt.Get("/v1/reconciliation", s.getReconciliation)

	// Sessions
	s.rt.With(requireJSON, s.validatePostSession()).Post("/v1/sessions", s.postSession)
	s.rt.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/v1/session", s.getSession)
		r.With(requireJSON, s.validateAmount()).Post("/v1/session/deposits", s.postDeposit)
		r.With(requireJSON, s.validateAmount()).Post("/v1/session/withdrawals", s.postWithdrawal)
		r.Post("/v1/session/interest", s.postInterest)
		r.With(s.validateLedgerQuery()).Get("/v1/session/ledger", s.getLedger)
	})
}
