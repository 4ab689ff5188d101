package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mathmentor-api/internal/models"
	"mathmentor-api/internal/util"
)

type MemberProfileRepository struct {
	client *ScyllaClient
}

func NewMemberProfileRepository(client *ScyllaClient, logger *zap.Logger) *MemberProfileRepository {
	return &MemberProfileRepository{client: client}
}

func (r *MemberProfileRepository) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if profile.ProfileID == "" {
		profile.ProfileID = uuid.New().String()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	profile.Email = util.NormalizeEmail(profile.Email)

	query := r.client.Query(r.client.Stmt.CreateProfile,
		profile.Bucket, profile.ProfileID, profile.Role,
		profile.DisplayName, profile.Email, profile.ContactEncrypted,
		profile.ContactDEK, profile.ContactKeyID, profile.GradeLevel,
		profile.Subjects, profile.CreatedAt, profile.UpdatedAt,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to create profile",
			zap.String("profile_id", profile.ProfileID),
			zap.String("role", profile.Role),
			zap.Error(err))
		return fmt.Errorf("failed to create profile: %w", err)
	}

	util.Info("Profile created",
		zap.String("profile_id", profile.ProfileID),
		zap.String("role", profile.Role),
		zap.Int("bucket", profile.Bucket))
	return nil
}

func (r *MemberProfileRepository) GetProfileByID(ctx context.Context, bucket int, profileID string) (*models.Profile, error) {
	profile := &models.Profile{}

	query := r.client.Query(r.client.Stmt.GetProfileByID, bucket, profileID).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&profile.Bucket, &profile.ProfileID, &profile.Role,
		&profile.DisplayName, &profile.Email, &profile.ContactEncrypted,
		&profile.ContactDEK, &profile.ContactKeyID, &profile.GradeLevel,
		&profile.Subjects, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: profile %s", ErrNotFound, profileID)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// UpdateProfile writes only the allow-listed mutable columns; role,
// email and the encrypted contact blob are immutable through this path.
func (r *MemberProfileRepository) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	now := time.Now().UTC()
	profile.UpdatedAt = &now

	query := r.client.Query(r.client.Stmt.UpdateProfile,
		profile.DisplayName, profile.GradeLevel, profile.Subjects,
		profile.UpdatedAt, profile.Bucket, profile.ProfileID,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to update profile",
			zap.String("profile_id", profile.ProfileID),
			zap.Error(err))
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}
