package logging

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const requestInfoKey ctxKey = "request_info"

// requestInfo is filled in by handlers and read back by the access log.
type requestInfo struct {
	mu     sync.Mutex
	plugin string
}

// NotePlugin records, for the access log, the namespace of the plugin that
// handled the request. It is a no-op outside HTTPMiddleware.
func NotePlugin(ctx context.Context, namespace string) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.mu.Lock()
		info.plugin = namespace
		info.mu.Unlock()
	}
}

type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	skip map[string]bool
}

// WithSkipPaths leaves requests for the given paths out of the access log.
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(o *middlewareOptions) {
		for _, p := range paths {
			o.skip[p] = true
		}
	}
}

// HTTPMiddleware stores a request scoped logger in the context and writes
// one access log entry per request. Server errors log at error level,
// client errors at warn.
func HTTPMiddleware(logger Logger, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := middlewareOptions{skip: make(map[string]bool)}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := WithContext(logger, r.Context())
			info := &requestInfo{}

			ctx := context.WithValue(ToContext(r.Context(), reqLogger), requestInfoKey, info)
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			if o.skip[r.URL.Path] {
				return
			}
			info.mu.Lock()
			pluginNS := info.plugin
			info.mu.Unlock()

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("page", r.URL.Query().Get("page")),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.Int("bytes", wrapped.bytesWritten),
			}
			if pluginNS != "" {
				fields = append(fields, zap.String("plugin", pluginNS))
			}

			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				reqLogger.Error("http.request", fields...)
			case wrapped.statusCode >= http.StatusBadRequest:
				reqLogger.Warn("http.request", fields...)
			default:
				reqLogger.Info("http.request", fields...)
			}
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RecoveryMiddleware turns a panicking handler into a logged 500. Nothing
// is written when the handler already started its response.
func RecoveryMiddleware(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				WithContext(logger, r.Context()).Error("http.panic.recovered",
					zap.Any("error", v),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Bool("response_started", wrapped.wroteHeader),
					zap.Stack("stack"),
				)
				if !wrapped.wroteHeader {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(wrapped, r)
		})
	}
}
