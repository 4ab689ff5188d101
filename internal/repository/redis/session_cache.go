package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mathmentor-api/internal/models"
	"mathmentor-api/internal/util"
)

const sessionKeyPrefix = "admin_session:"

// ErrCacheMiss signals the caller should fall through to the session
// table.
var ErrCacheMiss = errors.New("session cache miss")

// SessionCache fronts the admin_sessions table so repeated validations
// of the same token skip the Scylla round trip. Entries carry the
// session's remaining lifetime as TTL and are evicted on logout.
type SessionCache struct {
	rdb Commands
}

func NewSessionCache(rdb Commands) *SessionCache {
	return &SessionCache{rdb: rdb}
}

// Put stores a validated session. TTL is capped at the session's
// remaining lifetime so the cache can never outlive the row's expiry.
func (c *SessionCache) Put(ctx context.Context, session *models.AdminSession) error {
	remaining := time.Until(session.ExpiresAt)
	if remaining <= 0 {
		return nil
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	key := sessionKeyPrefix + session.SessionToken
	if err := c.rdb.Set(ctx, key, payload, remaining).Err(); err != nil {
		util.Error("Failed to cache admin session",
			zap.String("session_id", session.SessionID),
			zap.Error(err))
		return fmt.Errorf("failed to cache session: %w", err)
	}

	util.Debug("Admin session cached",
		zap.String("session_id", session.SessionID),
		zap.Duration("ttl", remaining))
	return nil
}

// Get returns a cached session or ErrCacheMiss.
func (c *SessionCache) Get(ctx context.Context, token string) (*models.AdminSession, error) {
	payload, err := c.rdb.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read session cache: %w", err)
	}

	session := &models.AdminSession{}
	if err := json.Unmarshal([]byte(payload), session); err != nil {
		return nil, fmt.Errorf("failed to decode cached session: %w", err)
	}
	return session, nil
}

// Invalidate evicts a session on logout.
func (c *SessionCache) Invalidate(ctx context.Context, token string) error {
	if err := c.rdb.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to invalidate session cache: %w", err)
	}
	return nil
}
