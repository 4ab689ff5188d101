package models

import "time"

// Login attempt outcomes recorded for audit and analytics.
const (
	AuthOutcomeAccepted = "accepted"
	AuthOutcomeRejected = "rejected"
	AuthOutcomeLocked   = "locked"
	AuthOutcomeError    = "error"
)

// AuthEvent describes one admin login attempt. Events flow to Kafka
// and ClickHouse; failures there never affect the login itself.
type AuthEvent struct {
	EventID    string    `json:"event_id"`
	AdminEmail string    `json:"admin_email"`
	AdminID    string    `json:"admin_id,omitempty"`
	Outcome    string    `json:"outcome"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	OccurredAt time.Time `json:"occurred_at"`
}
