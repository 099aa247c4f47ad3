package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/metrics"
	"github.com/campuslink/matchmaker/internal/ratelimit"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// HeaderUserID identifies the caller when JWT auth is not configured.
const HeaderUserID = "X-User-ID"

type userKey struct{}

// UserID returns the authenticated caller, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// requestLogger tags the request with an id, attaches a request-scoped logger
// and logs the outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" || len(id) > 64 {
			id = logging.NewRequestID()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := logging.WithRequestID(r.Context(), id)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		metrics.ObserveHTTP(route, status)

		evt := logging.Ctx(ctx).Info()
		if status >= http.StatusInternalServerError {
			evt = logging.Ctx(ctx).Error()
		}
		evt.Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(started)).
			Msg("http request")
	})
}

// AuthConfig controls how callers are identified.
type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens. The user id is the sub claim.
	JWTSecret string
	// Required rejects calls without an identity. Without a secret and with
	// Required unset, X-User-ID is trusted.
	Required bool
}

// authenticate resolves the caller and stores the id in the context. With
// optional set, anonymous calls pass; an invalid token is still rejected.
func authenticate(cfg AuthConfig, optional bool) func(http.Handler) http.Handler {
	secret := []byte(cfg.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			if len(secret) > 0 {
				tokenStr, ok := bearerToken(r)
				if ok {
					sub, err := parseSubject(tokenStr, secret)
					if err != nil {
						writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
						return
					}
					userID = sub
				}
			} else {
				userID = strings.TrimSpace(r.Header.Get(HeaderUserID))
			}

			if userID == "" && !optional && (cfg.Required || len(secret) > 0) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}

func parseSubject(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub = strings.TrimSpace(sub); sub == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return sub, nil
}

// userRateLimit throttles the authenticated caller with a Redis-backed rule.
// Anonymous calls and a disabled limiter pass through.
func userRateLimit(l *ratelimit.Limiter, rule ratelimit.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			if !l.Enabled() || userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			d, err := l.Take(r.Context(), userID, rule)
			if err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("rate limit check failed")
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Reset.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
