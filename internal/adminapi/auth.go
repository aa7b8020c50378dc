package adminapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"focus/internal/httputil"
)

// JWTVerifier validates a bearer token and returns the subject claim,
// generalized from the teacher's SupabaseJWTVerifier
// (internal/auth/jwt_verifier.go) to an operator-configured JWKS endpoint
// rather than a Supabase-specific one.
type JWTVerifier interface {
	VerifyToken(tokenString string) (subject string, err error)
}

// jwksVerifier implements JWTVerifier against a JWKS endpoint, keeping the
// teacher's keyfunc-based caching/refresh and RS256/ES256 algorithm
// allow-list, dropping the Supabase-specific "role=authenticated" claim
// check since the admin API has no such concept.
type jwksVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewJWTVerifier fetches and caches public keys from jwksURL.
func NewJWTVerifier(jwksURL string, logger *slog.Logger) (JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}
	jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}
	logger.Info("admin API JWT verifier initialized", "jwks_url", jwksURL)
	return &jwksVerifier{jwks: jwks, logger: logger}, nil
}

func (v *jwksVerifier) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, v.jwks.Keyfunc)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	switch token.Method.Alg() {
	case "RS256", "ES256":
	default:
		v.logger.Warn("token uses disallowed algorithm", "algorithm", token.Method.Alg())
		return "", errors.New("disallowed signing algorithm")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token missing subject claim")
	}
	return claims.Subject, nil
}

// bearerAuth wraps next with bearer-token verification. A nil verifier
// means the admin API has no JWKS URL configured, so auth is disabled and
// requests pass through unchanged (operator's choice, per config.AdminSettings).
func bearerAuth(verifier JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			subject, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Warn("admin API auth failed", "error", err, "path", r.URL.Path)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			r = httputil.WithSubject(r, subject)
			next.ServeHTTP(w, r)
		})
	}
}
