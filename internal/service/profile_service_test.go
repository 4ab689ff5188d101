package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"mathmentor-api/internal/bucketing"
	"mathmentor-api/internal/config"
	"mathmentor-api/internal/encryption"
	"mathmentor-api/internal/models"
	"mathmentor-api/internal/repository/scylla"
)

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*models.Profile)}
}

func (r *fakeProfileRepo) CreateProfile(_ context.Context, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *profile
	r.profiles[profile.ProfileID] = &copied
	return nil
}

func (r *fakeProfileRepo) GetProfileByID(_ context.Context, bucket int, profileID string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[profileID]
	if !ok || profile.Bucket != bucket {
		return nil, scylla.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (r *fakeProfileRepo) UpdateProfile(_ context.Context, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *profile
	r.profiles[profile.ProfileID] = &copied
	return nil
}

func newTestProfileService(t *testing.T) (*ProfileService, *fakeProfileRepo) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Bucketing.ProfileBuckets = 64
	cfg.KMS.Enabled = false
	repo := newFakeProfileRepo()
	svc := NewProfileService(
		repo,
		bucketing.NewBucketingManager(cfg),
		encryption.NewEncryptionManager(cfg, nil),
		zap.NewNop(),
	)
	return svc, repo
}

func TestCreateAndGetProfile(t *testing.T) {
	svc, repo := newTestProfileService(t)
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, &CreateProfileRequest{
		Role:        models.RoleStudent,
		DisplayName: "Asha",
		Email:       "Asha@Example.COM",
		Contact:     "+91-98765-43210",
		GradeLevel:  "8",
		Subjects:    []string{"algebra", "geometry"},
	})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if created.Email != "asha@example.com" {
		t.Errorf("Email = %q, want normalized", created.Email)
	}

	// The stored row carries ciphertext, never the plain contact.
	stored := repo.profiles[created.ProfileID]
	if len(stored.ContactEncrypted) == 0 || stored.ContactDEK == "" {
		t.Fatal("contact was not envelope-encrypted at rest")
	}
	if string(stored.ContactEncrypted) == "+91-98765-43210" {
		t.Fatal("contact stored in plaintext")
	}

	got, err := svc.GetProfile(ctx, created.ProfileID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Contact != "+91-98765-43210" {
		t.Errorf("Contact = %q, want decrypted original", got.Contact)
	}
}

func TestCreateProfileValidation(t *testing.T) {
	svc, _ := newTestProfileService(t)
	ctx := context.Background()

	cases := []*CreateProfileRequest{
		{Role: models.RoleStudent, Email: "a@b.test"},            // no display name
		{Role: models.RoleStudent, DisplayName: "X"},             // no email
		{Role: "principal", DisplayName: "X", Email: "a@b.test"}, // unknown role
	}
	for _, req := range cases {
		if _, err := svc.CreateProfile(ctx, req); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("CreateProfile(%+v): got %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestUpdateProfileAllowList(t *testing.T) {
	svc, repo := newTestProfileService(t)
	ctx := context.Background()

	created, err := svc.CreateProfile(ctx, &CreateProfileRequest{
		Role:        models.RoleTutor,
		DisplayName: "Old Name",
		Email:       "tutor@b.test",
	})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	name := "New Name"
	grade := "10"
	updated, err := svc.UpdateProfile(ctx, created.ProfileID, &UpdateProfileRequest{
		DisplayName: &name,
		GradeLevel:  &grade,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.DisplayName != "New Name" || updated.GradeLevel != "10" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Error("UpdatedAt not stamped")
	}

	// Fields outside the allow list stay put.
	stored := repo.profiles[created.ProfileID]
	if stored.Email != "tutor@b.test" || stored.Role != models.RoleTutor {
		t.Errorf("immutable fields changed: %+v", stored)
	}
}

func TestUpdateMissingProfile(t *testing.T) {
	svc, _ := newTestProfileService(t)

	name := "X"
	_, err := svc.UpdateProfile(context.Background(), "no-such-id", &UpdateProfileRequest{DisplayName: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateProfile: got %v, want ErrNotFound", err)
	}
}

func TestEnsureAdminProfileIdempotent(t *testing.T) {
	svc, repo := newTestProfileService(t)
	ctx := context.Background()

	if err := svc.EnsureAdminProfile(ctx, "admin-1", "Admin@B.Test"); err != nil {
		t.Fatalf("EnsureAdminProfile: %v", err)
	}
	if err := svc.EnsureAdminProfile(ctx, "admin-1", "Admin@B.Test"); err != nil {
		t.Fatalf("EnsureAdminProfile second call: %v", err)
	}

	if len(repo.profiles) != 1 {
		t.Fatalf("profiles = %d, want 1", len(repo.profiles))
	}
	profile := repo.profiles["admin-1"]
	if profile.Role != models.RoleAdmin || profile.Email != "admin@b.test" {
		t.Errorf("admin profile = %+v", profile)
	}
}
