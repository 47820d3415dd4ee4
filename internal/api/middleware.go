package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"askdb.dev/askdb/internal/auth"
	"askdb.dev/askdb/internal/logger"
	"askdb.dev/askdb/internal/metrics"
)

type contextKey string

const subjectKey contextKey = "subject"

// AuthConfig holds the accepted bearer credentials. Either may be empty.
type AuthConfig struct {
	StaticToken string
	JWTSecret   string
}

func (c AuthConfig) configured() bool {
	return c.StaticToken != "" || c.JWTSecret != ""
}

// BearerAuth accepts the static token or, when a secret is set, an HS256 JWT.
func BearerAuth(cfg AuthConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.configured() {
				log.Error("no bearer token or jwt secret configured")
				http.Error(w, "Server misconfigured", http.StatusInternalServerError)
				return
			}

			authHeader := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				http.Error(w, "Missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			token = strings.TrimSpace(token)

			if cfg.StaticToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(cfg.StaticToken)) == 1 {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, "static")))
				return
			}
			if cfg.JWTSecret != "" {
				if sub, err := auth.ValidateJWT(cfg.JWTSecret, token); err == nil {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, sub)))
					return
				}
			}
			http.Error(w, "Invalid token", http.StatusUnauthorized)
		})
	}
}

// Subject returns the authenticated caller, if any.
func Subject(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string)
	return sub
}

// RequestLogger writes one structured line per request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// Metrics records request counts and latency by route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveHTTPRequest(r.Method, path, strconv.Itoa(status), time.Since(start))
	})
}
