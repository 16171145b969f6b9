// Package middleware contains HTTP middleware functions.
//
// Middleware wraps an http.Handler to add cross-cutting behaviour (logging,
// correlation ids) without modifying the handler itself.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
// Go's http.ResponseWriter doesn't expose the status code after WriteHeader is
// called, so we wrap it to track it ourselves.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// CorrelationID returns the correlation id for a request.
//
// An inbound X-Correlation-Id header wins, so a trace started by the
// front-end or another service survives the hop; otherwise chi's generated
// request id is promoted. Handlers read this once and pass it DOWN as an
// explicit parameter — services and clients never reach back into the
// request, which keeps the id intact across goroutine and stream boundaries.
func CorrelationID(r *http.Request) string {
	if cid := r.Header.Get("X-Correlation-Id"); cid != "" {
		return cid
	}
	return chimiddleware.GetReqID(r.Context())
}

// Logger returns an HTTP middleware that logs each request using slog.
//
// Each log line includes: method, path, status code, duration, bytes written
// and the correlation id, so request-path log lines can be joined with the
// worker-side lines carrying the same id.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK, // default if WriteHeader is never called
			}

			next.ServeHTTP(wrapped, r)

			logger.Info("request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
				slog.String("correlation_id", CorrelationID(r)),
			)
		})
	}
}
