package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mathmentor-api/internal/bucketing"
	"mathmentor-api/internal/encryption"
	"mathmentor-api/internal/models"
	"mathmentor-api/internal/repository/scylla"
	"mathmentor-api/internal/util"
)

// ErrNotFound is the service-level miss reported for profiles and
// content items alike.
var ErrNotFound = errors.New("resource not found")

// CreateProfileRequest is the input for profile creation. Contact is
// optional and stored envelope-encrypted.
type CreateProfileRequest struct {
	Role        string   `json:"role"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"`
	Contact     string   `json:"contact,omitempty"`
	GradeLevel  string   `json:"grade_level,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
}

// UpdateProfileRequest carries the mutable profile fields. Nil means
// "leave unchanged"; role, email and contact are immutable through this
// path.
type UpdateProfileRequest struct {
	DisplayName *string   `json:"display_name,omitempty"`
	GradeLevel  *string   `json:"grade_level,omitempty"`
	Subjects    *[]string `json:"subjects,omitempty"`
}

// ProfileView is the decrypted profile shape returned to clients.
type ProfileView struct {
	ProfileID   string     `json:"profile_id"`
	Role        string     `json:"role"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email"`
	Contact     string     `json:"contact,omitempty"`
	GradeLevel  string     `json:"grade_level,omitempty"`
	Subjects    []string   `json:"subjects,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ProfileService manages platform member profiles: students, tutors and
// admins. Contact numbers are envelope-encrypted before they touch the
// database.
type ProfileService struct {
	repo       scylla.ProfileRepository
	bucketing  *bucketing.BucketingManager
	encryption *encryption.EncryptionManager
	logger     *zap.Logger
}

func NewProfileService(
	repo scylla.ProfileRepository,
	bucketing *bucketing.BucketingManager,
	encryption *encryption.EncryptionManager,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		repo:       repo,
		bucketing:  bucketing,
		encryption: encryption,
		logger:     logger,
	}
}

// CreateProfile validates, encrypts the contact number if present, and
// persists a new profile.
func (s *ProfileService) CreateProfile(ctx context.Context, req *CreateProfileRequest) (*ProfileView, error) {
	if req.DisplayName == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: display_name and email are required", ErrInvalidInput)
	}
	if !models.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}

	profileID := uuid.New().String()
	profile := &models.Profile{
		Bucket:      s.bucketing.GetProfileBucket(profileID),
		ProfileID:   profileID,
		Role:        req.Role,
		DisplayName: util.SanitizeInput(req.DisplayName),
		Email:       util.NormalizeEmail(req.Email),
		GradeLevel:  util.SanitizeInput(req.GradeLevel),
		Subjects:    req.Subjects,
		CreatedAt:   time.Now().UTC(),
	}

	if req.Contact != "" {
		field, err := s.encryption.EncryptContact(ctx, req.Contact)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt contact: %w", err)
		}
		profile.ContactEncrypted = field.Ciphertext
		profile.ContactDEK = field.EncryptedDEK
		profile.ContactKeyID = field.KeyID
	}

	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("Profile created",
		util.String("profile_id", profileID),
		util.String("role", profile.Role))

	return s.view(ctx, profile)
}

// GetProfile fetches a profile by id and decrypts the contact number.
func (s *ProfileService) GetProfile(ctx context.Context, profileID string) (*ProfileView, error) {
	if profileID == "" {
		return nil, fmt.Errorf("%w: profile id is required", ErrInvalidInput)
	}

	bucket := s.bucketing.GetProfileBucket(profileID)
	profile, err := s.repo.GetProfileByID(ctx, bucket, profileID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return s.view(ctx, profile)
}

// UpdateProfile applies the allow-listed mutable fields and persists.
func (s *ProfileService) UpdateProfile(ctx context.Context, profileID string, req *UpdateProfileRequest) (*ProfileView, error) {
	bucket := s.bucketing.GetProfileBucket(profileID)
	profile, err := s.repo.GetProfileByID(ctx, bucket, profileID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	if req.DisplayName != nil {
		profile.DisplayName = util.SanitizeInput(*req.DisplayName)
	}
	if req.GradeLevel != nil {
		profile.GradeLevel = util.SanitizeInput(*req.GradeLevel)
	}
	if req.Subjects != nil {
		profile.Subjects = *req.Subjects
	}

	now := time.Now().UTC()
	profile.UpdatedAt = &now

	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.view(ctx, profile)
}

// EnsureAdminProfile creates the platform profile backing an admin
// credential on first login. The profile id reuses the admin id so the
// call is idempotent.
func (s *ProfileService) EnsureAdminProfile(ctx context.Context, adminID, email string) error {
	bucket := s.bucketing.GetProfileBucket(adminID)

	if _, err := s.repo.GetProfileByID(ctx, bucket, adminID); err == nil {
		return nil
	} else if !errors.Is(err, scylla.ErrNotFound) {
		return fmt.Errorf("failed to check admin profile: %w", err)
	}

	profile := &models.Profile{
		Bucket:      bucket,
		ProfileID:   adminID,
		Role:        models.RoleAdmin,
		DisplayName: email,
		Email:       util.NormalizeEmail(email),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to create admin profile: %w", err)
	}

	s.logger.Info("Admin profile bootstrapped", util.String("profile_id", adminID))
	return nil
}

func (s *ProfileService) view(ctx context.Context, profile *models.Profile) (*ProfileView, error) {
	view := &ProfileView{
		ProfileID:   profile.ProfileID,
		Role:        profile.Role,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		GradeLevel:  profile.GradeLevel,
		Subjects:    profile.Subjects,
		CreatedAt:   profile.CreatedAt,
		UpdatedAt:   profile.UpdatedAt,
	}

	if len(profile.ContactEncrypted) > 0 {
		contact, err := s.encryption.DecryptContact(ctx, &encryption.EncryptedField{
			Ciphertext:   profile.ContactEncrypted,
			EncryptedDEK: profile.ContactDEK,
			KeyID:        profile.ContactKeyID,
		})
		if err != nil {
			// Surface the profile without the contact rather than
			// failing the whole read.
			s.logger.Error("Failed to decrypt contact",
				util.String("profile_id", profile.ProfileID),
				util.ErrorField(err))
		} else {
			view.Contact = contact
		}
	}

	return view, nil
}
