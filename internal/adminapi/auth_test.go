package adminapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"focus/internal/httputil"
)

var errInvalidToken = errors.New("invalid token")

type stubVerifier struct {
	subject string
	err     error
}

func (v stubVerifier) VerifyToken(tokenString string) (string, error) {
	if v.err != nil {
		return "", v.err
	}
	return v.subject, nil
}

func TestBearerAuth_NilVerifierPassesThrough(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	handler := bearerAuth(nil, testLogger())(next)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected next handler to run when verifier is nil")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestBearerAuth_MissingHeaderRejected(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not run without a bearer token")
	})

	handler := bearerAuth(stubVerifier{subject: "user-1"}, testLogger())(next)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/stats", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestBearerAuth_InvalidTokenRejected(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not run for an invalid token")
	})

	handler := bearerAuth(stubVerifier{err: errInvalidToken}, testLogger())(next)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/stats", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestBearerAuth_ValidTokenAttachesSubject(t *testing.T) {
	var gotSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = httputil.GetSubject(r)
		w.WriteHeader(http.StatusOK)
	})

	handler := bearerAuth(stubVerifier{subject: "user-42"}, testLogger())(next)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/stats", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotSubject != "user-42" {
		t.Fatalf("subject = %q, want user-42", gotSubject)
	}
}

func TestNewJWTVerifier_RejectsEmptyURL(t *testing.T) {
	if _, err := NewJWTVerifier("", testLogger()); err == nil {
		t.Fatalf("expected error for empty JWKS URL")
	}
}
