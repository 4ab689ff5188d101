package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"mathmentor-api/internal/service"
	"mathmentor-api/internal/token"
)

type contextKey string

const identityKey contextKey = "admin_identity"

// Authenticate guards the platform routes. It accepts either a JWT
// bearer token (stateless, no round trip) or the opaque session token
// (revocable, checked against the session store) and stores the admin
// identity in the request context.
func Authenticate(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity := resolveIdentity(r, authService); identity != nil {
				ctx := context.WithValue(r.Context(), identityKey, identity)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			writeAuthError(w, http.StatusUnauthorized, "Authentication required")
		})
	}
}

func resolveIdentity(r *http.Request, authService *service.AuthService) *token.Identity {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		identity, err := authService.VerifyBearer(strings.TrimPrefix(auth, "Bearer "))
		if err == nil {
			return identity
		}
		if !errors.Is(err, token.ErrInvalidToken) {
			return nil
		}
		// Fall through: the value may be an opaque session token sent
		// as a bearer credential.
	}

	sessionToken := sessionTokenFrom(r)
	if sessionToken == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			sessionToken = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if sessionToken == "" {
		return nil
	}

	session, err := authService.ValidateSession(r.Context(), sessionToken)
	if err != nil {
		return nil
	}
	return &token.Identity{
		AdminID: session.AdminID,
		Email:   session.AdminEmail,
		Role:    "admin",
	}
}

// IdentityFrom returns the authenticated admin identity, if any.
func IdentityFrom(ctx context.Context) (*token.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*token.Identity)
	return identity, ok
}
