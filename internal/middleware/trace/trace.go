// Package trace tags each request with an ID and reports its outcome once
// the handler returns.
package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID is echoed back on every response.
	HeaderRequestID = "X-Request-ID"

	maxRequestIDLength = 128
)

// Completion describes a finished request.
type Completion struct {
	RequestID string
	Method    string
	// Route is the matched ServeMux pattern, or "unmatched".
	Route    string
	Status   int
	Duration time.Duration
}

// Middleware handles request tracing
type Middleware struct {
	onComplete []func(*http.Request, Completion)
}

// NewMiddleware creates a new trace middleware. Each hook runs after the
// wrapped handler returns.
func NewMiddleware(onComplete ...func(*http.Request, Completion)) *Middleware {
	return &Middleware{onComplete: onComplete}
}

// Handler returns HTTP middleware for request tracing
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		route := new(string)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = context.WithValue(ctx, routeKey{}, route)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if *route == "" {
			*route = r.Pattern
		}
		if *route == "" {
			*route = "unmatched"
		}
		c := Completion{
			RequestID: requestID,
			Method:    r.Method,
			Route:     *route,
			Status:    rw.statusCode,
			Duration:  time.Since(start),
		}
		for _, hook := range m.onComplete {
			hook(r, c)
		}
	})
}

type routeKey struct{}

// Route wraps the ServeMux so Handler can report the matched pattern even
// when middleware in between replaces the request.
func Route(mux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		if p, ok := r.Context().Value(routeKey{}).(*string); ok {
			*p = r.Pattern
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
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
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestIDFromRequest is shaped for log.RequestIDMiddleware.
func RequestIDFromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}
