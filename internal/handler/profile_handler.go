package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mathmentor-api/internal/service"
	"mathmentor-api/internal/util"
)

// ProfileHandler handles HTTP requests for member profiles
type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// RegisterRoutes registers all profile routes
func (h *ProfileHandler) RegisterRoutes(router chi.Router) {
	router.Route("/profiles", func(r chi.Router) {
		r.Post("/", h.CreateProfile)
		r.Get("/{profileID}", h.GetProfile)
		r.Put("/{profileID}", h.UpdateProfile)
	})
}

// CreateProfile handles profile creation
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	profile, err := h.profileService.CreateProfile(ctx, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create profile")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(profile, "Profile created successfully"))
	h.logger.Info("Profile created via HTTP",
		util.String("profile_id", profile.ProfileID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "CreateProfile"),
	)
}

// GetProfile handles profile retrieval by ID
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID := chi.URLParam(r, "profileID")

	profile, err := h.profileService.GetProfile(ctx, profileID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get profile")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(profile, "Profile retrieved successfully"))
}

// UpdateProfile handles updates to the mutable profile fields
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID := chi.URLParam(r, "profileID")

	var req service.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	profile, err := h.profileService.UpdateProfile(ctx, profileID, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(profile, "Profile updated successfully"))
}
