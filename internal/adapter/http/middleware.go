package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pbellini/ingresso/internal/domain"
)

type credentialKey struct{}

// Claims is the JWT payload asserted by the identity provider. Subject
// comes from the registered claims; the email travels as a custom claim.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// CredentialFrom extracts the authenticated credential from the request
// context. It reports false when the request never passed the authenticator.
func CredentialFrom(ctx context.Context) (domain.Credential, bool) {
	cred, ok := ctx.Value(credentialKey{}).(domain.Credential)
	return cred, ok
}

// Authenticator returns middleware that validates a Bearer JWT on every
// API request and stores the resulting credential in the request context.
// Requests without a valid token get a 401 and never reach the handlers.
// Paths outside /api/v1 (docs, schema) pass through unauthenticated.
func Authenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/v1") {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			if claims.Subject == "" {
				unauthorized(w, "token missing subject")
				return
			}

			cred := domain.Credential{Subject: claims.Subject, Email: claims.Email}
			ctx := context.WithValue(r.Context(), credentialKey{}, cred)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"` + msg + `"}`))
}
