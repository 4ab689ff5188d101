package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mathmentor-api/internal/service"
	"mathmentor-api/internal/util"
)

// AnalyticsHandler serves the login-outcome analytics backed by
// ClickHouse.
type AnalyticsHandler struct {
	auditService *service.AuditService
	logger       *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(auditService *service.AuditService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// RegisterRoutes registers the analytics routes
func (h *AnalyticsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/analytics/logins", h.RecentLogins)
}

// RecentLogins returns the latest login outcomes, newest first.
// Optional ?limit= caps the page; the service clamps it.
func (h *AnalyticsHandler) RecentLogins(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.auditService.RecentEvents(ctx, limit)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load login analytics")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(events, "Login analytics retrieved successfully"))
	h.logger.Debug("Login analytics served", util.Int("events", len(events)))
}
