package models

import "time"

// AdminCredential is a persisted admin login record. Rows are
// provisioned out-of-band and never hard-deleted; login attempts only
// mutate the counters and timestamps.
type AdminCredential struct {
	AdminID       string     `db:"admin_id" json:"id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Salt          string     `db:"salt" json:"-"` // legacy SHA256 records only
	IsActive      bool       `db:"is_active" json:"is_active"`
	LoginAttempts int        `db:"login_attempts" json:"-"`
	LockedUntil   *time.Time `db:"locked_until" json:"-"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// AdminSession is the server-side half of an admin login: an opaque
// random token that can be revoked by deleting the row, alongside the
// stateless bearer JWT handed to the client.
type AdminSession struct {
	SessionID    string    `db:"session_id" json:"session_id"`
	AdminID      string    `db:"admin_id" json:"admin_id"`
	AdminEmail   string    `db:"admin_email" json:"admin_email"`
	SessionToken string    `db:"session_token" json:"session_token"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the session's lifetime has passed at the
// given instant.
func (s *AdminSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
