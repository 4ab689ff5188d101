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

type AdminCredentialRepository struct {
	client *ScyllaClient
}

func NewAdminCredentialRepository(client *ScyllaClient, logger *zap.Logger) *AdminCredentialRepository {
	return &AdminCredentialRepository{client: client}
}

// CreateAdmin inserts a provisioned credential row. The email must
// already be normalized by the caller.
func (r *AdminCredentialRepository) CreateAdmin(ctx context.Context, cred *models.AdminCredential) error {
	if cred.AdminID == "" {
		cred.AdminID = uuid.New().String()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}
	cred.Email = util.NormalizeEmail(cred.Email)

	query := r.client.Query(r.client.Stmt.CreateAdmin,
		cred.AdminID, cred.Email, cred.PasswordHash, cred.Salt,
		cred.IsActive, cred.LoginAttempts, cred.LockedUntil,
		cred.LastLogin, cred.CreatedAt,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to create admin credential",
			zap.String("email", cred.Email),
			zap.Error(err))
		return fmt.Errorf("failed to create admin credential: %w", err)
	}

	util.Info("Admin credential created",
		zap.String("admin_id", cred.AdminID),
		zap.String("email", cred.Email))
	return nil
}

// GetAdminByEmail looks up a credential by normalized email.
func (r *AdminCredentialRepository) GetAdminByEmail(ctx context.Context, email string) (*models.AdminCredential, error) {
	cred := &models.AdminCredential{}

	query := r.client.Query(r.client.Stmt.GetAdminByEmail, util.NormalizeEmail(email)).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&cred.AdminID, &cred.Email, &cred.PasswordHash, &cred.Salt,
		&cred.IsActive, &cred.LoginAttempts, &cred.LockedUntil,
		&cred.LastLogin, &cred.CreatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: admin %s", ErrNotFound, email)
		}
		util.Error("Failed to get admin by email",
			zap.String("email", email),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}

	return cred, nil
}

func (r *AdminCredentialRepository) GetAdminByID(ctx context.Context, adminID string) (*models.AdminCredential, error) {
	cred := &models.AdminCredential{}

	query := r.client.Query(r.client.Stmt.GetAdminByID, adminID).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&cred.AdminID, &cred.Email, &cred.PasswordHash, &cred.Salt,
		&cred.IsActive, &cred.LoginAttempts, &cred.LockedUntil,
		&cred.LastLogin, &cred.CreatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: admin id %s", ErrNotFound, adminID)
		}
		return nil, fmt.Errorf("failed to get admin by id: %w", err)
	}

	return cred, nil
}

// RecordLoginSuccess stamps last_login and clears the attempt counter
// and lock in a single update.
func (r *AdminCredentialRepository) RecordLoginSuccess(ctx context.Context, email string, at time.Time) error {
	query := r.client.Query(r.client.Stmt.RecordLoginSuccess, at, util.NormalizeEmail(email)).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to record login success",
			zap.String("email", email),
			zap.Error(err))
		return fmt.Errorf("failed to record login success: %w", err)
	}
	return nil
}

// RecordLoginFailure bumps the attempt counter and, once the threshold
// is reached, sets locked_until.
func (r *AdminCredentialRepository) RecordLoginFailure(ctx context.Context, email string, attempts int, lockedUntil *time.Time) error {
	query := r.client.Query(r.client.Stmt.RecordLoginFailure, attempts, lockedUntil, util.NormalizeEmail(email)).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to record login failure",
			zap.String("email", email),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return fmt.Errorf("failed to record login failure: %w", err)
	}
	return nil
}

func (r *AdminCredentialRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}
