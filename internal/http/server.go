package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"donations/internal/analytics"
	"donations/internal/log"
	"donations/internal/middleware/ratelimit"
	"donations/internal/middleware/security"
	"donations/internal/middleware/trace"
	"donations/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the API to its collaborators.
type Options struct {
	Donors     *services.DonorService
	Campaigns  *services.CampaignService
	Donations  *services.DonationService
	Analytics  *analytics.Engine
	Reconciler *services.Reconciler
	Store      Pinger
	Auth       *Authenticator
	Logger     *log.Logger

	// Production hides internal error details from 500 responses.
	Production         bool
	AllowedOrigins     []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

// Server is the donation REST API.
type Server struct {
	http.Server
	opts     Options
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(opts.Logger),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(trace.NewMiddleware(s.opts.Logger, s.detector.ExtractClientIP).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders:   []string{trace.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusMethodNotAllowed).JSON(messageBody{Message: "Method not allowed"}).Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	manager := s.requireRole(RoleManager)
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusTooManyRequests).
			JSON(messageBody{Message: "Rate limit exceeded. Please try again later."}).Write(w)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.opts.Auth.Middleware)

		r.Get("/dashboard", s.handleDashboard)

		r.Route("/donors", func(r chi.Router) {
			r.Get("/", s.handleListDonors)
			r.Get("/{id}", s.handleGetDonor)
			r.Group(func(r chi.Router) {
				r.Use(manager, limited)
				r.Post("/", s.handleCreateDonor)
				r.Put("/{id}", s.handleUpdateDonor)
				r.Delete("/{id}", s.handleDeleteDonor)
			})
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleListCampaigns)
			r.Get("/{id}", s.handleGetCampaign)
			r.Group(func(r chi.Router) {
				r.Use(manager, limited)
				r.Post("/", s.handleCreateCampaign)
				r.Put("/{id}", s.handleUpdateCampaign)
				r.Delete("/{id}", s.handleDeleteCampaign)
			})
		})

		r.Route("/donations", func(r chi.Router) {
			r.Get("/", s.handleListDonations)
			r.Get("/stats", s.handleDonationStats)
			r.Get("/{id}", s.handleGetDonation)
			r.Group(func(r chi.Router) {
				r.Use(manager, limited)
				r.Post("/", s.handleCreateDonation)
				r.Put("/{id}", s.handleUpdateDonation)
				r.Delete("/{id}", s.handleDeleteDonation)
			})
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/donations", s.handleDonationAnalytics)
			r.Get("/donors", s.handleDonorAnalytics)
			r.Get("/campaigns", s.handleCampaignAnalytics)
		})

		r.With(manager, limited).Post("/admin/reconcile", s.handleReconcile)
	})

	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
