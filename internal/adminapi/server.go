// Package adminapi serves a small user admin API used to exercise fetchkit
// resources end to end.
//
// Every response uses the resource.CallResult envelope:
//
//	GET    /api/users?page=&limit=  paginated listing
//	POST   /api/users               create
//	GET    /api/users/{id}          fetch one
//	DELETE /api/users/{id}          delete
//	GET    /api/stats               live counters
//
// /metrics and /ws are mounted when a gatherer and a hub are configured.
package adminapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/fetchkit/pkg/statehub"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	shutdownTimeout = 10 * time.Second
)

// RequestObserver records one served request.
type RequestObserver interface {
	ObserveRequest(route string, code int, d time.Duration)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithHub mounts the hub at /ws and reports its client count in stats.
func WithHub(h *statehub.Hub) Option {
	return func(s *Server) {
		s.hub = h
	}
}

// WithRequestObserver records every request, labelled by route pattern.
func WithRequestObserver(o RequestObserver) Option {
	return func(s *Server) {
		s.observer = o
	}
}

// WithGatherer mounts /metrics for the given gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRateLimit limits /api requests per client address. 0 disables it.
func WithRateLimit(requestsPerMinute int) Option {
	return func(s *Server) {
		if requestsPerMinute > 0 {
			s.limiter = NewIPRateLimiter(requestsPerMinute)
		}
	}
}

// WithChangeHook registers fn to run after every user mutation.
func WithChangeHook(fn func()) Option {
	return func(s *Server) {
		s.onChange = fn
	}
}

// Server is the admin API.
type Server struct {
	log      *slog.Logger
	store    *Store
	hub      *statehub.Hub
	observer RequestObserver
	gatherer prometheus.Gatherer
	limiter  *IPRateLimiter
	onChange func()
	validate *validator.Validate

	started  time.Time
	requests atomic.Uint64
	router   chi.Router
}

// New builds a Server over store.
func New(store *Store, opts ...Option) *Server {
	s := &Server{
		log:      slog.Default(),
		store:    store,
		validate: newValidator(),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "adminapi")
	s.setupRouter()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Get("/users", s.handleListUsers)
		r.Post("/users", s.handleCreateUser)
		r.Get("/users/{id}", s.handleGetUser)
		r.Delete("/users/{id}", s.handleDeleteUser)
		r.Get("/stats", s.handleStats)
	})

	s.router = r
}

// observe counts requests and reports them to the observer.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.requests.Add(1)

		if s.observer == nil {
			return
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		s.observer.ObserveRequest(route, status, time.Since(start))
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("admin API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.log.Info("stopping admin API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stats is the payload of GET /api/stats.
type Stats struct {
	Users         int         `json:"users" yaml:"users"`
	Roles         []RoleCount `json:"roles" yaml:"roles"`
	Requests      uint64      `json:"requests" yaml:"requests"`
	HubClients    int         `json:"hubClients" yaml:"hubClients"`
	UptimeSeconds int64       `json:"uptimeSeconds" yaml:"uptimeSeconds"`
	GeneratedAt   time.Time   `json:"generatedAt" yaml:"generatedAt"`
}

// Stats returns the current counters.
func (s *Server) Stats() Stats {
	st := Stats{
		Users:         s.store.Count(),
		Roles:         s.store.Roles(),
		Requests:      s.requests.Load(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		GeneratedAt:   time.Now().UTC(),
	}
	if s.hub != nil {
		st.HubClients = s.hub.ClientCount()
	}
	return st
}

func (s *Server) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
