package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging logs every HTTP request: method, path, status, duration and the
// authenticated role if any.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Milliseconds()
		role := GetRole(r.Context()) // empty if pre-auth
		if recorder.status >= http.StatusInternalServerError {
			slog.Error("Request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"role", role,
				"duration_ms", duration,
			)
		} else if recorder.status >= http.StatusBadRequest {
			slog.Warn("Request rejected",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"role", role,
				"duration_ms", duration,
			)
		} else {
			slog.Info("Request ok",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"role", role,
				"duration_ms", duration,
			)
		}
	})
}
