// Package models defines the persistent shapes stored by the server.
package models

import (
	"strings"
	"time"
)

// Account is a registered vault owner. SecretHash and MasterHash hold
// bcrypt digests of the two independent secrets; the plaintexts are never
// stored, logged, or serialized outward.
type Account struct {
	ID              string
	EmailNormalized string
	DisplayName     string
	SecretHash      string
	MasterHash      string
	Active          bool
	LastAccessAt    time.Time
	CreatedAt       time.Time

	// RecoveryToken is set by a reset request and cleared when the reset
	// completes or the token is consumed. Valid only until the expiry.
	RecoveryToken          string
	RecoveryTokenExpiresAt time.Time
}

// NormalizeEmail folds an email address to its canonical lookup form:
// trimmed and lower-cased. The accounts table is unique on this value.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
