package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID.
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext adds a trace ID to the context and returns a logger with it.
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// StreamContext creates a logger context for a WebSocket stream connection.
func StreamContext(connID string, symbols []string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"conn_id":      connID,
		"symbol_count": len(symbols),
	}).WithComponent("stream")
}

// RESTContext creates a logger context for a REST call against the exchange.
func RESTContext(endpoint string, weight int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"weight":   weight,
	}).WithComponent("rest")
}

// RecorderContext creates a logger context for the binary event recorder.
func RecorderContext(path string) *Logger {
	return Default().WithField("path", path).WithComponent("recorder")
}

// StoreContext creates a logger context for analytical-store operations.
func StoreContext(operation, table string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"table":     table,
	}).WithComponent("store")
}

// PlayerContext creates a logger context for replay-player operations.
func PlayerContext(product string) *Logger {
	return Default().WithField("product", product).WithComponent("player")
}
