package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Correlation headers read from clients and echoed back.
const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
)

// maxRequestIDLength bounds client-supplied IDs echoed into logs.
const maxRequestIDLength = 128

type correlationKey int

const (
	requestIDKey correlationKey = iota
	traceIDKey
)

// RequestID tags every request with an ID, reusing a well-formed
// X-Request-ID from the client and generating a UUID otherwise. A
// well-formed X-Trace-ID is carried along unchanged.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := cleanID(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		if traceID := cleanID(r.Header.Get(TraceIDHeader)); traceID != "" {
			w.Header().Set(TraceIDHeader, traceID)
			ctx = context.WithValue(ctx, traceIDKey, traceID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cleanID returns id if it is short printable ASCII, else "".
func cleanID(id string) string {
	if len(id) > maxRequestIDLength {
		return ""
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return ""
		}
	}
	return id
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
