package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	TraceIDKey   ctxKey = "trace_id"
	RequestIDKey ctxKey = "request_id"
	PluginKey    ctxKey = "plugin"
	loggerKey    ctxKey = "logger"
)

// WithContext creates a child logger with the trace id, request id and
// active plugin found in ctx.
func WithContext(logger Logger, ctx context.Context) Logger {
	if ctx == nil {
		return logger
	}

	var fields []zap.Field
	if v := stringValue(ctx, TraceIDKey); v != "" {
		fields = append(fields, zap.String("trace_id", v))
	}
	if v := stringValue(ctx, RequestIDKey); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := stringValue(ctx, PluginKey); v != "" {
		fields = append(fields, zap.String("plugin", v))
	}

	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

func GetTraceID(ctx context.Context) string { return stringValue(ctx, TraceIDKey) }

func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func GetRequestID(ctx context.Context) string { return stringValue(ctx, RequestIDKey) }

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// SetPlugin records the namespace of the plugin handling the request.
func SetPlugin(ctx context.Context, namespace string) context.Context {
	return context.WithValue(ctx, PluginKey, namespace)
}

// ToContext stores a logger in the context.
func ToContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(Logger); ok {
			return l
		}
	}
	return Global()
}
