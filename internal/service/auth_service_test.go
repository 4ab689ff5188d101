package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"mathmentor-api/internal/config"
	"mathmentor-api/internal/hashing"
	"mathmentor-api/internal/models"
	"mathmentor-api/internal/repository/scylla"
	"mathmentor-api/internal/token"
)

// fakeAdminRepo is an in-memory AdminRepository keyed by email.
type fakeAdminRepo struct {
	mu    sync.Mutex
	creds map[string]*models.AdminCredential
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{creds: make(map[string]*models.AdminCredential)}
}

func (r *fakeAdminRepo) CreateAdmin(_ context.Context, cred *models.AdminCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[cred.Email] = cred
	return nil
}

func (r *fakeAdminRepo) GetAdminByEmail(_ context.Context, email string) (*models.AdminCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[email]
	if !ok {
		return nil, fmt.Errorf("%w: admin %s", scylla.ErrNotFound, email)
	}
	copied := *cred
	return &copied, nil
}

func (r *fakeAdminRepo) GetAdminByID(_ context.Context, adminID string) (*models.AdminCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cred := range r.creds {
		if cred.AdminID == adminID {
			copied := *cred
			return &copied, nil
		}
	}
	return nil, scylla.ErrNotFound
}

func (r *fakeAdminRepo) RecordLoginSuccess(_ context.Context, email string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred, ok := r.creds[email]; ok {
		cred.LastLogin = &at
		cred.LoginAttempts = 0
		cred.LockedUntil = nil
	}
	return nil
}

func (r *fakeAdminRepo) RecordLoginFailure(_ context.Context, email string, attempts int, lockedUntil *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cred, ok := r.creds[email]; ok {
		cred.LoginAttempts = attempts
		cred.LockedUntil = lockedUntil
	}
	return nil
}

func (r *fakeAdminRepo) HealthCheck(context.Context) error { return nil }

// fakeSessionRepo is an in-memory SessionRepository keyed by token.
type fakeSessionRepo struct {
	mu         sync.Mutex
	sessions   map[string]*models.AdminSession
	failCreate bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.AdminSession)}
}

func (r *fakeSessionRepo) CreateSession(_ context.Context, session *models.AdminSession) error {
	if r.failCreate {
		return errors.New("write timeout")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.SessionToken] = &copied
	return nil
}

func (r *fakeSessionRepo) GetSessionByToken(_ context.Context, tok string) (*models.AdminSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[tok]
	if !ok {
		return nil, scylla.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) DeleteSession(_ context.Context, tok string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tok)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.SessionTTL = 7 * 24 * time.Hour
	cfg.Auth.DBTimeout = 5 * time.Second
	cfg.Auth.BcryptCost = 4
	cfg.Auth.MaxVerifyWorkers = 2
	return cfg
}

func newTestAuthService(t *testing.T, admins *fakeAdminRepo, sessions *fakeSessionRepo) *AuthService {
	t.Helper()
	cfg := testConfig()
	return NewAuthService(
		admins,
		sessions,
		hashing.NewVerifier(cfg),
		token.NewIssuer("test-secret", cfg.Auth.SessionTTL),
		nil, // no session cache
		nil, // no login limiter
		nil, // no profile bootstrap
		nil, // no audit sink
		cfg,
		zap.NewNop(),
	)
}

func seedBcryptAdmin(t *testing.T, repo *fakeAdminRepo, email, password string, active bool) *models.AdminCredential {
	t.Helper()
	cfg := testConfig()
	hash, err := hashing.NewVerifier(cfg).HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cred := &models.AdminCredential{
		AdminID:      "admin-" + email,
		Email:        email,
		PasswordHash: hash,
		IsActive:     active,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateAdmin(context.Background(), cred); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	return cred
}

func seedLegacyAdmin(t *testing.T, repo *fakeAdminRepo, email, salt, password string) *models.AdminCredential {
	t.Helper()
	sum := sha256.Sum256([]byte(salt + password))
	cred := &models.AdminCredential{
		AdminID:      "admin-" + email,
		Email:        email,
		PasswordHash: hex.EncodeToString(sum[:]),
		Salt:         salt,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreateAdmin(context.Background(), cred); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	return cred
}

var hexToken = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestLoginMissingFields(t *testing.T) {
	svc := newTestAuthService(t, newFakeAdminRepo(), newFakeSessionRepo())

	for _, req := range []*LoginRequest{
		{Email: "", Password: "pw"},
		{Email: "a@b.test", Password: ""},
		{Email: "", Password: ""},
	} {
		if _, err := svc.Login(context.Background(), req); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Login(%+v): got %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestAuthService(t, newFakeAdminRepo(), newFakeSessionRepo())

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "nobody@b.test", Password: "pw"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	admins := newFakeAdminRepo()
	seedBcryptAdmin(t, admins, "inactive@b.test", "pw123456", false)
	svc := newTestAuthService(t, admins, newFakeSessionRepo())

	// Correct password on an inactive row must look exactly like a miss.
	_, err := svc.Login(context.Background(), &LoginRequest{Email: "inactive@b.test", Password: "pw123456"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	admins := newFakeAdminRepo()
	seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newTestAuthService(t, admins, newFakeSessionRepo())

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "admin@b.test", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login: got %v, want ErrInvalidCredentials", err)
	}

	cred, _ := admins.GetAdminByEmail(context.Background(), "admin@b.test")
	if cred.LoginAttempts != 1 {
		t.Errorf("LoginAttempts = %d, want 1", cred.LoginAttempts)
	}
}

func TestLoginSuccess(t *testing.T) {
	admins := newFakeAdminRepo()
	sessions := newFakeSessionRepo()
	cred := seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newTestAuthService(t, admins, sessions)

	before := time.Now().UTC()
	result, err := svc.Login(context.Background(), &LoginRequest{
		Email:     "admin@b.test",
		Password:  "pw123456",
		IPAddress: "203.0.113.9",
		UserAgent: "go-test",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if result.User.ID != cred.AdminID || result.User.Email != cred.Email || result.User.Role != "admin" {
		t.Errorf("User = %+v", result.User)
	}
	if !hexToken.MatchString(result.SessionToken) {
		t.Errorf("SessionToken = %q, want 64 hex chars", result.SessionToken)
	}

	identity, err := svc.VerifyBearer(result.Token)
	if err != nil {
		t.Fatalf("VerifyBearer: %v", err)
	}
	if identity.AdminID != cred.AdminID {
		t.Errorf("bearer AdminID = %q, want %q", identity.AdminID, cred.AdminID)
	}

	stored, err := sessions.GetSessionByToken(context.Background(), result.SessionToken)
	if err != nil {
		t.Fatalf("session row missing: %v", err)
	}
	if stored.IPAddress != "203.0.113.9" || stored.UserAgent != "go-test" {
		t.Errorf("session metadata = %q/%q", stored.IPAddress, stored.UserAgent)
	}
	wantExpiry := before.Add(7 * 24 * time.Hour)
	if stored.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || stored.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want ~%v", stored.ExpiresAt, wantExpiry)
	}

	updated, _ := admins.GetAdminByEmail(context.Background(), "admin@b.test")
	if updated.LastLogin == nil {
		t.Error("LastLogin not recorded")
	}
	if updated.LoginAttempts != 0 {
		t.Errorf("LoginAttempts = %d, want 0", updated.LoginAttempts)
	}
}

func TestLoginEmailNormalization(t *testing.T) {
	admins := newFakeAdminRepo()
	seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newTestAuthService(t, admins, newFakeSessionRepo())

	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "  Admin@B.Test ", Password: "pw123456"}); err != nil {
		t.Fatalf("Login with unnormalized email: %v", err)
	}
}

func TestLoginLegacyCredential(t *testing.T) {
	admins := newFakeAdminRepo()
	seedLegacyAdmin(t, admins, "legacy@b.test", "oldsalt", "pw123456")
	svc := newTestAuthService(t, admins, newFakeSessionRepo())

	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "legacy@b.test", Password: "pw123456"}); err != nil {
		t.Fatalf("Login legacy: %v", err)
	}

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "legacy@b.test", Password: "nope"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login legacy wrong pw: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginSessionWriteFailure(t *testing.T) {
	admins := newFakeAdminRepo()
	sessions := newFakeSessionRepo()
	sessions.failCreate = true
	seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newTestAuthService(t, admins, sessions)

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "admin@b.test", Password: "pw123456"})
	if err == nil {
		t.Fatal("Login: expected error when session write fails")
	}
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Login: infrastructure failure misclassified: %v", err)
	}
}

func TestLoginLockedAccount(t *testing.T) {
	admins := newFakeAdminRepo()
	cred := seedBcryptAdmin(t, admins, "locked@b.test", "pw123456", true)
	until := time.Now().UTC().Add(10 * time.Minute)
	_ = admins.RecordLoginFailure(context.Background(), cred.Email, 5, &until)
	svc := newTestAuthService(t, admins, newFakeSessionRepo())

	// Correct password, but the lock window is still open.
	_, err := svc.Login(context.Background(), &LoginRequest{Email: "locked@b.test", Password: "pw123456"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login while locked: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginExpiredLock(t *testing.T) {
	admins := newFakeAdminRepo()
	cred := seedBcryptAdmin(t, admins, "was-locked@b.test", "pw123456", true)
	until := time.Now().UTC().Add(-time.Minute)
	_ = admins.RecordLoginFailure(context.Background(), cred.Email, 5, &until)
	svc := newTestAuthService(t, admins, newFakeSessionRepo())

	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "was-locked@b.test", Password: "pw123456"}); err != nil {
		t.Fatalf("Login after lock expiry: %v", err)
	}
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	admins := newFakeAdminRepo()
	sessions := newFakeSessionRepo()
	seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newTestAuthService(t, admins, sessions)

	first, err := svc.Login(context.Background(), &LoginRequest{Email: "admin@b.test", Password: "pw123456"})
	if err != nil {
		t.Fatalf("first Login: %v", err)
	}
	second, err := svc.Login(context.Background(), &LoginRequest{Email: "admin@b.test", Password: "pw123456"})
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}

	if first.SessionToken == second.SessionToken {
		t.Fatal("two logins produced the same session token")
	}

	// Revoking one session must not touch the other.
	if err := svc.Logout(context.Background(), first.SessionToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), first.SessionToken); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("ValidateSession revoked: got %v, want ErrSessionInvalid", err)
	}
	if _, err := svc.ValidateSession(context.Background(), second.SessionToken); err != nil {
		t.Fatalf("ValidateSession surviving: %v", err)
	}
}

func TestValidateSession(t *testing.T) {
	admins := newFakeAdminRepo()
	sessions := newFakeSessionRepo()
	cred := seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newTestAuthService(t, admins, sessions)

	result, err := svc.Login(context.Background(), &LoginRequest{Email: "admin@b.test", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	session, err := svc.ValidateSession(context.Background(), result.SessionToken)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if session.AdminID != cred.AdminID {
		t.Errorf("AdminID = %q, want %q", session.AdminID, cred.AdminID)
	}

	if _, err := svc.ValidateSession(context.Background(), "deadbeef"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("ValidateSession unknown: got %v, want ErrSessionInvalid", err)
	}
	if _, err := svc.ValidateSession(context.Background(), ""); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("ValidateSession empty: got %v, want ErrSessionInvalid", err)
	}
}

func TestValidateSessionExpired(t *testing.T) {
	sessions := newFakeSessionRepo()
	svc := newTestAuthService(t, newFakeAdminRepo(), sessions)

	expired := &models.AdminSession{
		SessionID:    "sess-1",
		AdminID:      "admin-1",
		AdminEmail:   "a@b.test",
		SessionToken: "feedface",
		CreatedAt:    time.Now().UTC().Add(-8 * 24 * time.Hour),
		ExpiresAt:    time.Now().UTC().Add(-24 * time.Hour),
	}
	if err := sessions.CreateSession(context.Background(), expired); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := svc.ValidateSession(context.Background(), "feedface"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("ValidateSession expired: got %v, want ErrSessionExpired", err)
	}

	// Validation is a pure read: the expired row stays put.
	if _, err := sessions.GetSessionByToken(context.Background(), "feedface"); err != nil {
		t.Fatalf("expired session row was deleted: %v", err)
	}
}
