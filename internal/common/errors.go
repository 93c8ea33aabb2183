// Package common defines shared constants and sentinel errors used across
// PassVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Account lifecycle errors.
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrIncorrectCurrentSecret = errors.New("current secret does not match")
	ErrInvalidOrExpiredToken  = errors.New("invalid or expired recovery token")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountDisabled        = errors.New("account disabled")

	// Session token errors (distinct kinds so callers can answer precisely).
	ErrTokenExpired   = errors.New("session token expired")
	ErrTokenMalformed = errors.New("session token malformed")

	// Vault errors.
	ErrDuplicateTitle   = errors.New("title already used for this account")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidOptions   = errors.New("invalid generator options")

	// Configuration errors, fatal at startup.
	ErrMissingSecretKey = errors.New("signing secret is not configured")
	ErrInvalidVaultKey  = errors.New("encryption key must be 32 bytes, base64-encoded")
)
