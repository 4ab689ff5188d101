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

type AdminSessionRepository struct {
	client *ScyllaClient
}

func NewAdminSessionRepository(client *ScyllaClient, logger *zap.Logger) *AdminSessionRepository {
	return &AdminSessionRepository{client: client}
}

// CreateSession writes exactly one new session row. Concurrent logins
// for the same admin each get their own row; nothing de-duplicates.
func (r *AdminSessionRepository) CreateSession(ctx context.Context, session *models.AdminSession) error {
	if session.SessionID == "" {
		session.SessionID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	query := r.client.Query(r.client.Stmt.CreateSession,
		session.SessionToken, session.SessionID, session.AdminID,
		session.AdminEmail, session.IPAddress, session.UserAgent,
		session.CreatedAt, session.ExpiresAt,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to create admin session",
			zap.String("admin_id", session.AdminID),
			zap.String("session_id", session.SessionID),
			zap.Error(err))
		return fmt.Errorf("failed to create admin session: %w", err)
	}

	util.Info("Admin session created",
		zap.String("admin_id", session.AdminID),
		zap.String("session_id", session.SessionID),
		zap.Time("expires_at", session.ExpiresAt))
	return nil
}

// GetSessionByToken is a pure read; expiry is the caller's concern so
// "present but expired" stays distinguishable from "absent".
func (r *AdminSessionRepository) GetSessionByToken(ctx context.Context, token string) (*models.AdminSession, error) {
	session := &models.AdminSession{}

	query := r.client.Query(r.client.Stmt.GetSessionByToken, token).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&session.SessionToken, &session.SessionID, &session.AdminID,
		&session.AdminEmail, &session.IPAddress, &session.UserAgent,
		&session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: session", ErrNotFound)
		}
		util.Error("Failed to get session by token", zap.Error(err))
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}

	return session, nil
}

// DeleteSession revokes a session by removing its row.
func (r *AdminSessionRepository) DeleteSession(ctx context.Context, token string) error {
	query := r.client.Query(r.client.Stmt.DeleteSession, token).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to delete admin session", zap.Error(err))
		return fmt.Errorf("failed to delete admin session: %w", err)
	}

	util.Debug("Admin session deleted")
	return nil
}
