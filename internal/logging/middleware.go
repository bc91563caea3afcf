package logging

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ContextKey is a type for context keys
type ContextKey string

const (
	// LoggerContextKey is the key for the logger in the request context
	LoggerContextKey ContextKey = "logger"

	requestFieldsContextKey ContextKey = "request_fields"
)

// requestFields collects attributes learned while the request runs,
// such as the authenticated user, for the completion line
type requestFields struct {
	mu   sync.Mutex
	args []any
}

// AddRequestFields attaches key-value pairs to the "request completed" line
// of the current request. It is a no-op outside RequestLogger.
func AddRequestFields(ctx context.Context, args ...any) {
	fields, ok := ctx.Value(requestFieldsContextKey).(*requestFields)
	if !ok {
		return
	}
	fields.mu.Lock()
	fields.args = append(fields.args, args...)
	fields.mu.Unlock()
}

// RequestLogger attaches a request-scoped logger to the context and logs one
// completion line per request at a level chosen by the response status
func RequestLogger(logger *Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote_ip", r.RemoteAddr,
			)
			reqLogger.Debug("request started")

			fields := &requestFields{}
			ctx := WithLogger(r.Context(), reqLogger)
			ctx = context.WithValue(ctx, requestFieldsContextKey, fields)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			fields.mu.Lock()
			args := append([]any{
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}, fields.args...)
			fields.mu.Unlock()

			reqLogger.Log(r.Context(), levelForStatus(status), "request completed", args...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// WithLogger stores the logger in the context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// GetLoggerFromContext retrieves the logger from the request context
func GetLoggerFromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	// Fallback to a default logger if not found
	return NewLogger(true)
}
