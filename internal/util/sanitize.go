package util

import (
	"html"
	"strings"
)

// SanitizeInput trims whitespace and escapes HTML-significant
// characters from free-form text fields (note bodies, material
// descriptions) before they are persisted.
func SanitizeInput(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// NormalizeEmail lower-cases and trims an email address. Every write
// and lookup of an admin email goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
