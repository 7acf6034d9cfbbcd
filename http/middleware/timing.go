package middleware

import (
	"context"
	"net/http"
	"time"
)

type timingContextKey string

const startTimeKey timingContextKey = "start_time"

// TimingMiddleware records the request start time.
func TimingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), startTimeKey, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StartTime returns when the request entered TimingMiddleware.
func StartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startTimeKey).(time.Time)
	return t, ok
}

// GetRequestDuration returns the milliseconds since the request started,
// or 0 outside TimingMiddleware.
func GetRequestDuration(ctx context.Context) int64 {
	if start, ok := StartTime(ctx); ok {
		return time.Since(start).Milliseconds()
	}
	return 0
}
