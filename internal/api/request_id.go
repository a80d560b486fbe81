package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// requestIDHeader is the header clients may set to propagate their own
// request ID; the same name is echoed back on the response.
const requestIDHeader = "x-request-id"

// RequestIDMiddleware ensures every request has a request ID, generating
// one when the caller didn't supply it, and attaches it to the request
// context for handlers and logging to pick up via GetRequestID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID for the current request.
func GetRequestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	if value := r.Context().Value(requestIDKey); value != nil {
		if requestID, ok := value.(string); ok {
			return requestID
		}
	}
	return ""
}
