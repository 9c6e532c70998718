// Package middleware provides HTTP middleware for request logging and panic recovery.
// It integrates with zerolog for structured logging and tags every request with a unique id.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/ideconnector/internal/common/httpx"
	"github.com/tansive/ideconnector/internal/common/logtrace"
	"github.com/tansive/ideconnector/internal/common/uuid"
)

// RequestIDHeader carries the request id back to the caller.
const RequestIDHeader = "X-IDEConnector-Request-ID"

// RequestLogger logs incoming requests and adds a unique request ID to both the request
// context and response headers. Query parameters are not logged since they carry credentials.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		requestID := newRequestId()
		ctx = logtrace.WithRequestId(ctx, requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)
		rw := httpx.NewResponseWriter(w)

		log.Ctx(ctx).Info().
			Str("requestMethod", r.Method).
			Str("requestPath", r.URL.Path).
			Str("remoteIP", r.RemoteAddr).
			Str("proto", r.Proto).
			Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Int("status", rw.Status()).
				Int64("bytes", rw.BytesWritten()).
				Int("flushes", rw.Flushes()).
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
				Msg("request completed")
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}

// newRequestId generates a unique request identifier. It attempts to create a UUID first,
// falling back to a timestamp-based ID if UUID generation fails.
func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
