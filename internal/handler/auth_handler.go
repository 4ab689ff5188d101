package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mathmentor-api/internal/service"
	"mathmentor-api/internal/util"
)

// AuthHandler handles the admin authentication endpoints. Unlike the
// platform endpoints these return the exact shapes the dashboard
// frontend consumes rather than the standard envelope.
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth routes. Rate limiting on the login
// route is applied by the router so the limit sits in one place.
func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Route("/auth/admin", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.Session)
	})
}

// Login handles admin login.
// 200 {token, session_token, user}; 400 missing fields;
// 401 {"error":"Invalid credentials"}; 500 {"error": ...}.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.IPAddress = clientIP(r)
	req.UserAgent = r.UserAgent()

	result, err := h.authService.Login(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeAuthError(w, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, service.ErrInvalidCredentials):
			// One message for every rejection reason.
			writeAuthError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			h.logger.Error("Login failed",
				util.ErrorField(err),
				util.String("remote_addr", r.RemoteAddr),
			)
			writeAuthError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
	h.logger.Info("Admin login via HTTP",
		util.String("admin_id", result.User.ID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Login"),
	)
}

// Logout revokes the presented session token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := sessionTokenFrom(r)
	if token == "" {
		writeAuthError(w, http.StatusBadRequest, "Session token is required")
		return
	}

	if err := h.authService.Logout(ctx, token); err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			writeAuthError(w, http.StatusBadRequest, "Session token is required")
			return
		}
		h.logger.Error("Logout failed", util.ErrorField(err))
		writeAuthError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Session validates the presented session token and returns the admin
// identity bound to it.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := sessionTokenFrom(r)
	if token == "" {
		writeAuthError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	session, err := h.authService.ValidateSession(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionExpired):
			writeAuthError(w, http.StatusUnauthorized, "Session expired")
		case errors.Is(err, service.ErrSessionInvalid):
			writeAuthError(w, http.StatusUnauthorized, "Invalid session")
		default:
			h.logger.Error("Session validation failed", util.ErrorField(err))
			writeAuthError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user": service.AdminView{
			ID:    session.AdminID,
			Email: session.AdminEmail,
			Role:  "admin",
		},
		"expires_at": session.ExpiresAt,
	})
}

// writeAuthError writes the flat {"error": ...} body the auth contract
// uses.
func writeAuthError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// sessionTokenFrom pulls the opaque session token from the
// X-Session-Token header.
func sessionTokenFrom(r *http.Request) string {
	return r.Header.Get("X-Session-Token")
}

// clientIP trusts the RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
