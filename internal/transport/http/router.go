// Package http wires the verification and review flows to their REST
// surface. Authentication is delegated to the upstream gateway, which sets
// the X-User-ID header on every request it lets through.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter assembles the chi router with the shared middleware stack.
func NewRouter(
	sms *SMSHandler,
	liveness *LivenessHandler,
	documents *DocumentHandler,
	reviews *ReviewHandler,
	baseLogger *zerolog.Logger,
) chi.Router {
	log := baseLogger.With().Str("component", "http").Logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Route("/verification", func(r chi.Router) {
				r.Route("/sms", func(r chi.Router) {
					r.Post("/send", sms.send)
					r.Post("/verify", sms.verify)
					r.Post("/resend", sms.resend)
					r.Get("/status", sms.status)
				})
				r.Route("/liveness", func(r chi.Router) {
					r.Post("/upload", liveness.upload)
					r.Get("/{sessionID}/status", liveness.status)
					r.Post("/{sessionID}/retry", liveness.retry)
				})
				r.Route("/id", func(r chi.Router) {
					r.Post("/upload", documents.upload)
					r.Get("/{verificationID}/status", documents.status)
					r.With(requireAdmin).Post("/{verificationID}/review", documents.manualReview)
				})
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Post("/", reviews.create)
				r.Post("/{reviewID}/response", reviews.respond)
			})
		})

		// Public rating surface.
		r.Get("/users/{userID}/reviews", reviews.listForUser)
		r.Get("/users/{userID}/rating", reviews.userRating)
	})

	return r
}

// requestLogger logs one line per request in the service's zerolog format.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}
