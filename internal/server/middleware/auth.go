package middleware

import (
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/adsmirror/adsmirror/internal/core/auth"
)

// TokenValidator resolves a bearer token to a user ID.
type TokenValidator interface {
	ValidateToken(raw string) (int64, error)
}

// RequireAuth rejects requests without a valid `Authorization: Bearer` token
// and stores the authenticated user ID in the request context.
func RequireAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, r, "missing bearer token")
				return
			}

			userID, err := validator.ValidateToken(token)
			if err != nil {
				unauthorized(w, r, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	env := errors.NewErrorEnvelope("UNAUTHORIZED", msg).
		WithCorrelationID(GetRequestID(r.Context()))
	w.Header().Set("WWW-Authenticate", `Bearer realm="adsmirror"`)
	writeErrorResponse(w, env, http.StatusUnauthorized)
}
