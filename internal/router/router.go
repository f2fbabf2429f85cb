package router

import (
	"context"
	"net/http"

	"QueryFilter/internal/auth"
	"QueryFilter/internal/config"
	"QueryFilter/internal/handler"
	"QueryFilter/internal/logger"
	"QueryFilter/internal/metrics"

	"github.com/google/uuid"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// NewMux инициализирует маршруты API и /metrics.
func NewMux(cfg *config.Config, svc *handler.Service) (*http.ServeMux, error) {
	var validator *auth.JWTValidator
	if cfg.Auth.Enabled {
		v, err := auth.NewJWTValidator(cfg.Auth.JWT)
		if err != nil {
			return nil, err
		}
		validator = v
	}

	cors := newCORSPolicy(cfg.CORS.AllowOrigin, cfg.CORS.AllowCredentials)
	mux := http.NewServeMux()
	api := func(path string, h http.HandlerFunc) {
		mux.Handle(path, withRequestID(withLogging(path, withCORS(cors, withAuth(validator, h)))))
	}
	api("/api/parse", svc.ParseHandler)
	api("/api/index", svc.IndexHandler)
	api("/api/count", svc.CountHandler)
	mux.Handle("/metrics", metrics.Handler())
	return mux, nil
}

// RequestID returns the id assigned to the request by withRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	}
}

// withAuth требует Bearer JWT, если валидатор задан; claims кладутся в контекст.
func withAuth(v *auth.JWTValidator, next http.HandlerFunc) http.HandlerFunc {
	if v == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r)
		if !ok {
			unauthorized(w, "missing bearer token")
			return
		}
		claims, err := v.ValidateToken(token)
		if err != nil {
			logger.Warn("auth_failed", map[string]any{
				"path":       r.URL.Path,
				"request_id": RequestID(r.Context()),
				"error":      err.Error(),
			})
			unauthorized(w, "invalid token")
			return
		}
		next(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"ERR_UNAUTHORIZED","message":"` + msg + `"}` + "\n"))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		metrics.ObserveHTTP(path, sw.status)
		level := "info"
		if sw.status >= 500 {
			level = "error"
		} else if sw.status >= 400 {
			level = "warn"
		}
		fields := map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     sw.status,
			"request_id": RequestID(r.Context()),
		}
		switch level {
		case "error":
			logger.Error("response", fields)
		case "warn":
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	}
}
