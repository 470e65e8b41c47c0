package http

import (
	"net/http"
	"time"

	"modreview/internal/domain"
	"modreview/internal/dto"
	"modreview/internal/httpx"
	"modreview/internal/observability/middleware"
	"modreview/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Credentials service.CredentialService
	Reviews     service.ReviewService
	Status      service.StatusWorkflow
	Moderation  service.ModerationService
}

type Options struct {
	CORSOrigins []string
	// LoginRateLimit caps requests per client IP per minute on /api/login.
	// Zero disables the limit.
	LoginRateLimit int
}

func NewRouter(d Deps, opts Options) chi.Router {
	h := &handlers{Deps: d}
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.WithRequestAndTrace)
	r.Use(httpx.LogRequests)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithMetrics)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "X-Trace-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, domain.ErrNotFound, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, dto.Error(http.StatusMethodNotAllowed, "Method Not Allowed", "method_not_allowed"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/login", func(r chi.Router) {
		if opts.LoginRateLimit > 0 {
			r.Use(httprate.LimitByIP(opts.LoginRateLimit, time.Minute))
		}
		r.Post("/password", h.loginPassword)
		r.Post("/otp/create", h.createOTP)
		r.Post("/otp", h.redeemOTP)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth(d.Credentials))

		r.Get("/moderator/user/{username}", h.getUser)

		r.Get("/api/me", h.me)
		r.Post("/api/logout", h.logout)

		r.Route("/api/moderator", func(r chi.Router) {
			r.Get("/review/{username}", h.openReview)
			r.Delete("/review/{username}", h.abandonReview)
			r.Post("/review/{username}/{status}", h.setStatus)
			r.Post("/update/{username}/{key}", h.updateProperty)
		})
	})

	return r
}
