package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a feed store
// operation or reader session.
type LogContext struct {
	TraceID    string    // OpenTelemetry trace ID
	SpanID     string    // OpenTelemetry span ID
	Path       string    // Feed path the operation concerns
	ReaderKind string    // "bulk", "selective", "ordered" for read-stream operations
	RequestID  string    // HTTP API request ID, if applicable
	StartTime  time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a feed path
func NewLogContext(path string) *LogContext {
	return &LogContext{
		Path:      path,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:    lc.TraceID,
		SpanID:     lc.SpanID,
		Path:       lc.Path,
		ReaderKind: lc.ReaderKind,
		RequestID:  lc.RequestID,
		StartTime:  lc.StartTime,
	}
}

// WithPath returns a copy with the feed path set
func (lc *LogContext) WithPath(path string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Path = path
	}
	return clone
}

// WithReaderKind returns a copy with the reader kind set
func (lc *LogContext) WithReaderKind(kind string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ReaderKind = kind
	}
	return clone
}

// WithRequestID returns a copy with the request ID set
func (lc *LogContext) WithRequestID(id string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RequestID = id
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
