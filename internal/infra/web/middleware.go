package web

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/infra/logging"
	"wifi-loyalty-portal/internal/infra/metrics"
	"wifi-loyalty-portal/internal/infra/redis"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Middleware = func(http.Handler) http.Handler

// Limiter is the fixed-window limiter used per client origin.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type respWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *respWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *respWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *respWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// TraceID tags the request with a trace id and the client origin. chi's RealIP runs first,
// so RemoteAddr already reflects X-Real-IP / X-Forwarded-For.
func TraceID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			ctx := logging.WithTraceID(r.Context(), id)
			ctx = logging.WithOrigin(ctx, clientOrigin(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientOrigin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestLog logs one line per request and records the HTTP metrics under the chi route pattern.
func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &respWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			elapsed := time.Since(start)
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			metrics.ObserveHTTP(route, rw.Status(), elapsed.Seconds())

			ev := logging.With(r.Context(), logger).Info()
			if rw.Status() >= 500 {
				ev = logging.With(r.Context(), logger).Error()
			}
			ev.Str("method", r.Method).
				Str("route", route).
				Int("status", rw.Status()).
				Int("bytes", rw.bytes).
				Dur("elapsed", elapsed).
				Msg("http request")
		})
	}
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logging.With(r.Context(), logger).Error().
						Interface("panic", rec).
						Bytes("stack", debug.Stack()).
						Msg("panic in handler")
					writeError(w, http.StatusInternalServerError, "internal error", "internal")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit caps requests per origin for scope. Limiter errors fail open; a nil limiter disables it.
func RateLimit(l Limiter, scope string, limit int, window time.Duration, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := logging.Origin(r.Context())
			if origin == "" {
				origin = clientOrigin(r)
			}
			ok, err := l.Allow(r.Context(), redis.OriginKey(scope, origin), limit, window)
			if err != nil {
				logging.With(r.Context(), logger).Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Retry-After", retryAfter(window))
				writeError(w, http.StatusTooManyRequests, "too many requests", "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// RequireStaff rejects requests without a valid staff token or with a role below minRole.
func RequireStaff(auth *AuthManager, minRole model.StaffRole) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFrom(r.Context())
			if claims == nil {
				c, err := auth.ParseFromRequest(r)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "authentication required", "unauthorized")
					return
				}
				claims = c
			}
			if !roleAtLeast(claims.Role, minRole) {
				writeError(w, http.StatusForbidden, "insufficient role", "forbidden")
				return
			}
			ctx := withClaims(r.Context(), claims)
			ctx = logging.WithStaffID(ctx, claims.StaffID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
