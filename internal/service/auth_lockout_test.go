package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mathmentor-api/internal/hashing"
	redisrepo "mathmentor-api/internal/repository/redis"
	"mathmentor-api/internal/token"
)

// fakeCommands backs the limiter and session cache with a map so the
// full Redis lockout path runs without a server.
type fakeCommands struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{data: make(map[string]string)}
}

func (f *fakeCommands) Get(_ context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(val, nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value interface{}, _ time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case string:
		f.data[key] = v
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			removed++
		}
	}
	return goredis.NewIntResult(removed, nil)
}

func (f *fakeCommands) Incr(_ context.Context, key string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	count, _ := strconv.ParseInt(f.data[key], 10, 64)
	count++
	f.data[key] = strconv.FormatInt(count, 10)
	return goredis.NewIntResult(count, nil)
}

func (f *fakeCommands) Expire(_ context.Context, key string, _ time.Duration) *goredis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return goredis.NewBoolResult(ok, nil)
}

func newLockoutAuthService(t *testing.T, admins *fakeAdminRepo, sessions *fakeSessionRepo, threshold int) *AuthService {
	t.Helper()
	cfg := testConfig()
	cfg.Auth.LockoutThreshold = threshold
	cfg.Auth.LockoutWindow = 15 * time.Minute

	rdb := newFakeCommands()
	return NewAuthService(
		admins,
		sessions,
		hashing.NewVerifier(cfg),
		token.NewIssuer("test-secret", cfg.Auth.SessionTTL),
		redisrepo.NewSessionCache(rdb),
		redisrepo.NewLoginLimiter(rdb, cfg.Auth.LockoutThreshold, cfg.Auth.LockoutWindow),
		nil,
		nil,
		cfg,
		zap.NewNop(),
	)
}

func TestLoginLockoutTripsAtThreshold(t *testing.T) {
	admins := newFakeAdminRepo()
	seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newLockoutAuthService(t, admins, newFakeSessionRepo(), 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, &LoginRequest{Email: "admin@b.test", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d: got %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// The threshold failure stamps the durable lock on the credential.
	cred, _ := admins.GetAdminByEmail(ctx, "admin@b.test")
	if cred.LoginAttempts != 3 {
		t.Errorf("LoginAttempts = %d, want 3", cred.LoginAttempts)
	}
	if cred.LockedUntil == nil || !cred.LockedUntil.After(time.Now().UTC()) {
		t.Fatalf("LockedUntil = %v, want a future lock", cred.LockedUntil)
	}

	// While locked, even the correct password is rejected with the same
	// generic error, and the attempt counter does not move.
	_, err := svc.Login(ctx, &LoginRequest{Email: "admin@b.test", Password: "pw123456"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login while locked: got %v, want ErrInvalidCredentials", err)
	}
	cred, _ = admins.GetAdminByEmail(ctx, "admin@b.test")
	if cred.LoginAttempts != 3 {
		t.Errorf("locked attempt changed LoginAttempts to %d", cred.LoginAttempts)
	}
}

func TestLoginBelowThresholdStaysOpen(t *testing.T) {
	admins := newFakeAdminRepo()
	seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newLockoutAuthService(t, admins, newFakeSessionRepo(), 3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Login(ctx, &LoginRequest{Email: "admin@b.test", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d: got %v", i+1, err)
		}
	}

	cred, _ := admins.GetAdminByEmail(ctx, "admin@b.test")
	if cred.LockedUntil != nil {
		t.Fatalf("LockedUntil = %v before threshold", cred.LockedUntil)
	}

	if _, err := svc.Login(ctx, &LoginRequest{Email: "admin@b.test", Password: "pw123456"}); err != nil {
		t.Fatalf("Login below threshold: %v", err)
	}
}

func TestLoginSuccessResetsLimiter(t *testing.T) {
	admins := newFakeAdminRepo()
	seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newLockoutAuthService(t, admins, newFakeSessionRepo(), 3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Login(ctx, &LoginRequest{Email: "admin@b.test", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d: got %v", i+1, err)
		}
	}
	if _, err := svc.Login(ctx, &LoginRequest{Email: "admin@b.test", Password: "pw123456"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// The counter restarted: one more failure is attempt 1, not 3.
	if _, err := svc.Login(ctx, &LoginRequest{Email: "admin@b.test", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("post-reset failure: got %v", err)
	}
	cred, _ := admins.GetAdminByEmail(ctx, "admin@b.test")
	if cred.LoginAttempts != 1 {
		t.Errorf("LoginAttempts = %d, want 1 after reset", cred.LoginAttempts)
	}
	if cred.LockedUntil != nil {
		t.Errorf("LockedUntil = %v, want nil after reset", cred.LockedUntil)
	}
}

func TestValidateSessionServedFromCache(t *testing.T) {
	admins := newFakeAdminRepo()
	sessions := newFakeSessionRepo()
	seedBcryptAdmin(t, admins, "admin@b.test", "pw123456", true)
	svc := newLockoutAuthService(t, admins, sessions, 3)
	ctx := context.Background()

	result, err := svc.Login(ctx, &LoginRequest{Email: "admin@b.test", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Remove the row behind the cache; validation should still hit.
	if err := sessions.DeleteSession(ctx, result.SessionToken); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := svc.ValidateSession(ctx, result.SessionToken); err != nil {
		t.Fatalf("ValidateSession from cache: %v", err)
	}

	// Logout evicts the cache entry, so the token is now fully dead.
	if err := svc.Logout(ctx, result.SessionToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ValidateSession(ctx, result.SessionToken); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("ValidateSession after logout: got %v, want ErrSessionInvalid", err)
	}
}
