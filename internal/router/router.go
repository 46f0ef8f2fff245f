package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/itinerary"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ItineraryHandler *itinerary.HandlerImpl
	// AuthenticateMiddleware rejects anonymous requests.
	AuthenticateMiddleware func(http.Handler) http.Handler
	// OptionalAuthMiddleware attaches the caller when a token is sent.
	OptionalAuthMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
	// GenerateRateLimit is requests per minute per client IP; 0 disables it.
	GenerateRateLimit int
}

// SetupRouter builds the application routes. Server-wide middleware is
// applied in main before this router is mounted.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	var generate []func(http.Handler) http.Handler
	if cfg.GenerateRateLimit > 0 {
		generate = append(generate, httprate.Limit(cfg.GenerateRateLimit, time.Minute,
			httprate.WithKeyByRealIP(),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many itinerary requests, slow down")
			}),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/itineraries", cfg.ItineraryHandler.Routes(
			cfg.OptionalAuthMiddleware,
			cfg.AuthenticateMiddleware,
			generate...,
		))
	})

	return r
}
