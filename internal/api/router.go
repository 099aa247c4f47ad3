// Package api serves the matchmaking and connections HTTP API on chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/campuslink/matchmaker/internal/connection"
	"github.com/campuslink/matchmaker/internal/matching"
	"github.com/campuslink/matchmaker/internal/metrics"
	"github.com/campuslink/matchmaker/internal/ratelimit"
	"github.com/campuslink/matchmaker/internal/suggest"
)

// ProfileStore is the profile persistence used by the API.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*matching.Profile, error)
	Upsert(ctx context.Context, p *matching.Profile) error
	SearchByHobby(ctx context.Context, term, excludeID string, limit int) ([]*matching.Profile, error)
	Availability(ctx context.Context, userID string) ([]matching.Slot, error)
	SaveAvailability(ctx context.Context, userID string, slots []matching.Slot) ([]matching.Slot, error)
	ClearAvailability(ctx context.Context, userID string) error
}

// Config holds the HTTP surface settings.
type Config struct {
	Auth        AuthConfig
	CORSOrigins []string
	IPRateLimit int // requests per minute per IP, 0 disables
}

// Server holds the handler dependencies. Profiles may be nil when no
// database is configured; Suggest may be unconfigured.
type Server struct {
	cfg         Config
	matcher     *matching.Service
	profiles    ProfileStore
	connections *connection.Service
	suggest     *suggest.Service
	limiter     *ratelimit.Limiter
}

// NewServer wires a Server.
func NewServer(cfg Config, matcher *matching.Service, profiles ProfileStore, connections *connection.Service, sug *suggest.Service, limiter *ratelimit.Limiter) *Server {
	return &Server{
		cfg:         cfg,
		matcher:     matcher,
		profiles:    profiles,
		connections: connections,
		suggest:     sug,
		limiter:     limiter,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", HeaderUserID, HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         86400,
	}))
	if s.cfg.IPRateLimit > 0 {
		r.Use(httprate.Limit(s.cfg.IPRateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests from this address")
			}),
		))
	}

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	auth := authenticate(s.cfg.Auth, false)
	r.Route("/api/matchmaking", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/hobbies", s.searchHobbies)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.With(userRateLimit(s.limiter, ratelimit.RuleMatch)).Post("/matches", s.createMatches)
			r.Route("/schedules/{userId}", func(r chi.Router) {
				r.Get("/", s.getSchedule)
				r.Put("/", s.saveSchedule)
				r.Delete("/", s.clearSchedule)
			})
			r.Route("/profiles/{userId}", func(r chi.Router) {
				r.Get("/", s.getProfile)
				r.Put("/", s.saveProfile)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate(s.cfg.Auth, true))
			r.Use(userRateLimit(s.limiter, ratelimit.RuleSuggest))
			r.Post("/activity-suggestions", s.activitySuggestions)
			r.Post("/hangout-plans", s.hangoutPlan)
		})
	})

	r.Route("/api/connections", func(r chi.Router) {
		r.Use(auth)
		r.Get("/", s.connectionGraph)
		r.With(userRateLimit(s.limiter, ratelimit.RuleConnect)).Post("/requests", s.sendRequest)
		r.Post("/requests/{id}/accept", s.acceptRequest)
		r.Post("/requests/{id}/decline", s.declineRequest)
		r.Delete("/friends/{friendId}", s.removeFriend)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}
