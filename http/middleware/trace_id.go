// Package middleware holds the request-scoped HTTP middleware of the host.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/leeforge/orchestra/logging"
)

const (
	TraceIDHeader   = "X-Trace-ID"
	RequestIDHeader = "X-Request-ID"
)

// TraceIDMiddleware stores a trace id and a request id on the request
// context, where the logging package picks them up. An incoming
// X-Trace-ID is kept; the request id is always fresh.
func TraceIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceIDHeader)
			if traceID == "" {
				traceID = uuid.NewString()
			}
			requestID := uuid.Must(uuid.NewV7()).String()

			w.Header().Set(TraceIDHeader, traceID)
			w.Header().Set(RequestIDHeader, requestID)

			ctx := logging.SetTraceID(r.Context(), traceID)
			ctx = logging.SetRequestID(ctx, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTraceIDFromRequest retrieves the trace ID from request context
func GetTraceIDFromRequest(r *http.Request) string {
	return logging.GetTraceID(r.Context())
}
