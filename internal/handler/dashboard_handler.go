package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mathmentor-api/internal/service"
	"mathmentor-api/internal/util"
)

// DashboardHandler serves the aggregated per-profile dashboard.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// RegisterRoutes registers the dashboard routes
func (h *DashboardHandler) RegisterRoutes(router chi.Router) {
	router.Get("/profiles/{profileID}/dashboard", h.GetDashboard)
}

// GetDashboard returns the profile plus content counts and recent
// items, aggregated in parallel.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	profileID := chi.URLParam(r, "profileID")

	dash, err := h.dashboardService.GetDashboard(ctx, profileID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to build dashboard")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(dash, "Dashboard retrieved successfully"))
	h.logger.Debug("Dashboard served",
		util.String("profile_id", profileID),
		util.Duration("duration", time.Since(startTime)),
	)
}
