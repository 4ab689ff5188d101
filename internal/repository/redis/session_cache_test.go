package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"mathmentor-api/internal/models"
)

func testSession(token string, expiresAt time.Time) *models.AdminSession {
	now := time.Now().UTC()
	return &models.AdminSession{
		SessionID:    "sess-1",
		AdminID:      "admin-1",
		AdminEmail:   "admin@mathmentor.test",
		SessionToken: token,
		IPAddress:    "203.0.113.9",
		UserAgent:    "test-agent",
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
	}
}

func TestSessionCacheRoundTrip(t *testing.T) {
	rdb := newFakeRedis()
	cache := NewSessionCache(rdb)
	ctx := context.Background()

	session := testSession("tok-1", time.Now().UTC().Add(time.Hour))
	if err := cache.Put(ctx, session); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// TTL is the remaining lifetime, never more.
	ttl := rdb.ttl[sessionKeyPrefix+"tok-1"]
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl = %v, want within remaining lifetime", ttl)
	}

	got, err := cache.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AdminID != "admin-1" || got.SessionToken != "tok-1" {
		t.Fatalf("Get = %+v", got)
	}
}

func TestSessionCacheSkipsExpired(t *testing.T) {
	cache := NewSessionCache(newFakeRedis())
	ctx := context.Background()

	expired := testSession("tok-old", time.Now().UTC().Add(-time.Minute))
	if err := cache.Put(ctx, expired); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := cache.Get(ctx, "tok-old"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get expired: got %v, want ErrCacheMiss", err)
	}
}

func TestSessionCacheInvalidate(t *testing.T) {
	cache := NewSessionCache(newFakeRedis())
	ctx := context.Background()

	session := testSession("tok-2", time.Now().UTC().Add(time.Hour))
	if err := cache.Put(ctx, session); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := cache.Invalidate(ctx, "tok-2"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := cache.Get(ctx, "tok-2"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get after invalidate: got %v, want ErrCacheMiss", err)
	}
}

func TestSessionCacheMiss(t *testing.T) {
	cache := NewSessionCache(newFakeRedis())

	if _, err := cache.Get(context.Background(), "never-stored"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get: got %v, want ErrCacheMiss", err)
	}
}
