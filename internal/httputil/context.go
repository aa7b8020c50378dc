package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions with other packages' context keys.
type contextKey string

const subjectKey contextKey = "subject"

// WithSubject attaches the authenticated bearer token's subject to the
// request context.
func WithSubject(r *http.Request, subject string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), subjectKey, subject))
}

// GetSubject retrieves the authenticated subject from context, returning
// an empty string if the request was not authenticated.
func GetSubject(r *http.Request) string {
	subject, _ := r.Context().Value(subjectKey).(string)
	return subject
}
