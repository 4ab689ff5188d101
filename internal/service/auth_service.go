package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mathmentor-api/internal/config"
	"mathmentor-api/internal/hashing"
	"mathmentor-api/internal/models"
	redisrepo "mathmentor-api/internal/repository/redis"
	"mathmentor-api/internal/repository/scylla"
	"mathmentor-api/internal/token"
	"mathmentor-api/internal/util"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials covers unknown email, inactive account,
	// locked account and password mismatch alike; the client never
	// learns which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrSessionExpired     = errors.New("session expired")
)

// opaqueTokenBytes is the entropy of the server-side session token;
// hex-encoded it becomes a 64-character string.
const opaqueTokenBytes = 32

// LoginRequest carries the credentials plus the request metadata
// recorded on the session row.
type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResult is the successful login payload: the stateless bearer
// token, the revocable opaque session token and the admin identity.
type LoginResult struct {
	Token        string     `json:"token"`
	SessionToken string     `json:"session_token"`
	User         AdminView  `json:"user"`
	Session      *models.AdminSession `json:"-"`
}

// AdminView is the admin identity shape returned to clients.
type AdminView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthService orchestrates the admin login flow: credential lookup,
// scheme-dispatched password verification, token and session issuance,
// and session validation.
type AuthService struct {
	adminRepo   scylla.AdminRepository
	sessionRepo scylla.SessionRepository
	verifier    *hashing.Verifier
	issuer      *token.Issuer
	sessions    *redisrepo.SessionCache
	limiter     *redisrepo.LoginLimiter
	profiles    *ProfileService
	audit       *AuditService
	logger      *zap.Logger

	sessionTTL time.Duration
	dbTimeout  time.Duration
}

func NewAuthService(
	adminRepo scylla.AdminRepository,
	sessionRepo scylla.SessionRepository,
	verifier *hashing.Verifier,
	issuer *token.Issuer,
	sessions *redisrepo.SessionCache,
	limiter *redisrepo.LoginLimiter,
	profiles *ProfileService,
	audit *AuditService,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
		verifier:    verifier,
		issuer:      issuer,
		sessions:    sessions,
		limiter:     limiter,
		profiles:    profiles,
		audit:       audit,
		logger:      logger,
		sessionTTL:  cfg.Auth.SessionTTL,
		dbTimeout:   cfg.Auth.DBTimeout,
	}
}

// Login runs one login attempt to a terminal accept or reject. All
// rejection reasons collapse into ErrInvalidCredentials; anything else
// is an infrastructure failure the handler reports as a server error.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	email := util.NormalizeEmail(req.Email)

	// Lockout gate runs before any password work.
	if locked, err := s.isLocked(ctx, email); err != nil {
		return nil, err
	} else if locked {
		s.recordEvent(email, "", models.AuthOutcomeLocked, req)
		return nil, ErrInvalidCredentials
	}

	cred, err := s.lookupCredential(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			s.recordEvent(email, "", models.AuthOutcomeRejected, req)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Inactive accounts are indistinguishable from unknown ones.
	if !cred.IsActive {
		s.recordEvent(email, cred.AdminID, models.AuthOutcomeRejected, req)
		return nil, ErrInvalidCredentials
	}

	scheme := hashing.ResolveScheme(cred.PasswordHash, cred.Salt)

	match, err := s.verifier.Verify(ctx, scheme, req.Password)
	if err != nil {
		return nil, fmt.Errorf("password verification: %w", err)
	}
	if !match {
		s.registerFailure(ctx, cred)
		s.recordEvent(email, cred.AdminID, models.AuthOutcomeRejected, req)
		return nil, ErrInvalidCredentials
	}

	result, err := s.issueSession(ctx, cred, req)
	if err != nil {
		s.recordEvent(email, cred.AdminID, models.AuthOutcomeError, req)
		return nil, err
	}

	s.recordEvent(email, cred.AdminID, models.AuthOutcomeAccepted, req)
	return result, nil
}

// issueSession mints the bearer token, persists the session row and
// updates the credential's login bookkeeping. The session write is
// awaited: if it fails, the login fails even though the token was
// already computed in memory.
func (s *AuthService) issueSession(ctx context.Context, cred *models.AdminCredential, req *LoginRequest) (*LoginResult, error) {
	bearer, err := s.issuer.Issue(cred.AdminID, cred.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign bearer token: %w", err)
	}

	opaque, err := newOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now().UTC()
	session := &models.AdminSession{
		SessionID:    uuid.New().String(),
		AdminID:      cred.AdminID,
		AdminEmail:   cred.Email,
		SessionToken: opaque,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.sessionTTL),
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	if err := s.sessionRepo.CreateSession(dbCtx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	if err := s.adminRepo.RecordLoginSuccess(dbCtx, cred.Email, now); err != nil {
		// The session already exists; losing the bookkeeping update is
		// tolerable but worth a log line.
		s.logger.Warn("Failed to record login success",
			util.String("admin_id", cred.AdminID),
			util.ErrorField(err))
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, cred.Email); err != nil {
			s.logger.Warn("Failed to reset login limiter",
				util.String("email", cred.Email),
				util.ErrorField(err))
		}
	}

	if s.sessions != nil {
		if err := s.sessions.Put(ctx, session); err != nil {
			s.logger.Warn("Failed to prime session cache", util.ErrorField(err))
		}
	}

	// Profile bootstrap: make sure the admin has a platform profile.
	// Best-effort; the login stands even if this write fails.
	if s.profiles != nil {
		if err := s.profiles.EnsureAdminProfile(ctx, cred.AdminID, cred.Email); err != nil {
			s.logger.Warn("Failed to bootstrap admin profile",
				util.String("admin_id", cred.AdminID),
				util.ErrorField(err))
		}
	}

	s.logger.Info("Admin login accepted",
		util.String("admin_id", cred.AdminID),
		util.String("session_id", session.SessionID),
	)

	return &LoginResult{
		Token:        bearer,
		SessionToken: opaque,
		User: AdminView{
			ID:    cred.AdminID,
			Email: cred.Email,
			Role:  "admin",
		},
		Session: session,
	}, nil
}

// ValidateSession resolves an opaque session token to an active
// session. Expired and unknown tokens report distinct errors; neither
// deletes anything.
func (s *AuthService) ValidateSession(ctx context.Context, sessionToken string) (*models.AdminSession, error) {
	if sessionToken == "" {
		return nil, ErrSessionInvalid
	}

	if s.sessions != nil {
		if cached, err := s.sessions.Get(ctx, sessionToken); err == nil {
			if cached.Expired(time.Now().UTC()) {
				return nil, ErrSessionExpired
			}
			return cached, nil
		} else if !errors.Is(err, redisrepo.ErrCacheMiss) {
			s.logger.Warn("Session cache read failed", util.ErrorField(err))
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	session, err := s.sessionRepo.GetSessionByToken(dbCtx, sessionToken)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	if session.Expired(time.Now().UTC()) {
		return nil, ErrSessionExpired
	}

	if s.sessions != nil {
		if err := s.sessions.Put(ctx, session); err != nil {
			s.logger.Warn("Failed to cache session", util.ErrorField(err))
		}
	}

	return session, nil
}

// Logout revokes a session by deleting its row and evicting the cache
// entry. Revoking an unknown token is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return ErrSessionInvalid
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	if err := s.sessionRepo.DeleteSession(dbCtx, sessionToken); err != nil {
		return fmt.Errorf("session revocation: %w", err)
	}

	if s.sessions != nil {
		if err := s.sessions.Invalidate(ctx, sessionToken); err != nil {
			s.logger.Warn("Failed to evict session cache entry", util.ErrorField(err))
		}
	}

	return nil
}

// VerifyBearer validates a stateless bearer token without any database
// round trip.
func (s *AuthService) VerifyBearer(tokenStr string) (*token.Identity, error) {
	return s.issuer.Verify(tokenStr)
}

// isLocked consults the Redis failure counter and, as a durable
// backstop, the credential row's locked_until column.
func (s *AuthService) isLocked(ctx context.Context, email string) (bool, error) {
	if s.limiter != nil {
		locked, err := s.limiter.IsLocked(ctx, email)
		if err != nil {
			s.logger.Warn("Login limiter check failed", util.ErrorField(err))
		} else if locked {
			return true, nil
		}
	}

	cred, err := s.lookupCredential(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			// Unknown emails are handled downstream as a generic reject.
			return false, nil
		}
		return false, err
	}

	return cred.LockedUntil != nil && cred.LockedUntil.After(time.Now().UTC()), nil
}

func (s *AuthService) lookupCredential(ctx context.Context, email string) (*models.AdminCredential, error) {
	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	return s.adminRepo.GetAdminByEmail(dbCtx, email)
}

// registerFailure bumps both failure counters. Once the Redis counter
// reaches the threshold, locked_until is stamped on the credential so
// the lock survives a cache flush.
func (s *AuthService) registerFailure(ctx context.Context, cred *models.AdminCredential) {
	attempts := cred.LoginAttempts + 1
	var lockedUntil *time.Time

	if s.limiter != nil {
		count, err := s.limiter.RecordFailure(ctx, cred.Email)
		if err == nil {
			attempts = count
			if count >= s.limiter.Threshold() {
				until := time.Now().UTC().Add(s.limiter.Window())
				lockedUntil = &until
			}
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	if err := s.adminRepo.RecordLoginFailure(dbCtx, cred.Email, attempts, lockedUntil); err != nil {
		s.logger.Warn("Failed to persist login failure",
			util.String("email", cred.Email),
			util.ErrorField(err))
	}

	if lockedUntil != nil {
		s.logger.Warn("Admin account locked",
			util.String("email", cred.Email),
			util.Int("attempts", attempts),
		)
	}
}

func (s *AuthService) recordEvent(email, adminID, outcome string, req *LoginRequest) {
	if s.audit == nil {
		return
	}
	s.audit.Record(&models.AuthEvent{
		EventID:    uuid.New().String(),
		AdminEmail: email,
		AdminID:    adminID,
		Outcome:    outcome,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		OccurredAt: time.Now().UTC(),
	})
}

func newOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
