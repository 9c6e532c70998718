package logtrace

import (
	"context"
)

type requestIdContextKey string

// RequestIdKey is the context key under which the request id is stored.
const RequestIdKey = requestIdContextKey("requestId")

// WithRequestId returns a copy of ctx carrying the request id.
func WithRequestId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIdKey, id)
}

// RequestIdFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or if no request ID is found.
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(RequestIdKey).(string)
	if !ok {
		return ""
	}
	return r
}

// IsTraceEnabled reports whether route tracing was enabled with EnableTrace.
func IsTraceEnabled() bool {
	return traceEnabled
}

var traceEnabled bool

// EnableTrace turns on route tracing.
func EnableTrace(enabled bool) {
	traceEnabled = enabled
}
