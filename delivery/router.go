package delivery

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP handler of the application.
func NewRouter(deps AppDependencies) http.Handler {
	r := chi.NewRouter()

	h := &HTTPEndpoint{
		app:    deps,
		logger: deps.GetLogger(),
	}
	limiter := newRateLimiter(deps.GetRateLimit())

	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	// --- Static File Server ---
	fileServer := http.FileServer(http.FS(staticFiles()))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// --- Operational Routes ---
	r.Get("/healthz", h.healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	// --- Pages ---
	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)
		r.Use(limiter.Middleware)

		r.Get("/", h.homeHandler)

		login := h.loginHandler()
		r.Get("/login", login)
		r.Post("/login", login)

		signUp := h.registrationHandler()
		r.Get("/sign-up", signUp)
		r.Post("/sign-up", signUp)

		r.Post("/api/login", h.apiSubmitHandler("login"))
		r.Post("/api/sign-up", h.apiSubmitHandler("register"))
	})

	r.NotFound(h.notFoundHandler)

	return r
}
