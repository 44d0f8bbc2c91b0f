package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const TraceHeader = "X-Trace-Id"

type contextKey string

const traceIDContextKey contextKey = "trace_id"

// TraceMiddleware automatically generates or extracts trace IDs from requests
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		w.Header().Set(TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(WithTraceID(r.Context(), traceID)))
	})
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey, traceID)
}

// TraceIDFromContext returns the trace ID stored in ctx, if any.
func TraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDContextKey).(string); ok {
		return traceID
	}
	return ""
}

// retrieves the trace ID from the request context
func GetTraceID(r *http.Request) string {
	return TraceIDFromContext(r.Context())
}

// adds the trace ID to an outgoing HTTP request
func PropagateTraceID(req *http.Request, traceID string) {
	if traceID != "" {
		req.Header.Set(TraceHeader, traceID)
	}
}

// TraceTransport stamps every outgoing request with a trace ID, reusing the
// one carried by the request context when present.
type TraceTransport struct {
	Base http.RoundTripper
}

func (t *TraceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get(TraceHeader) != "" {
		return base.RoundTrip(req)
	}

	traceID := TraceIDFromContext(req.Context())
	if traceID == "" {
		traceID = uuid.New().String()
	}
	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	PropagateTraceID(out, traceID)
	return base.RoundTrip(out)
}
