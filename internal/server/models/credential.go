package models

import (
	"strings"
	"time"
)

// Category is the closed set of credential buckets.
type Category string

const (
	CategoryLogin    Category = "login"
	CategoryCard     Category = "card"
	CategoryNote     Category = "note"
	CategoryIdentity Category = "identity"
	CategoryOther    Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryLogin, CategoryCard, CategoryNote, CategoryIdentity, CategoryOther:
		return true
	}
	return false
}

// Credential is a stored site credential owned by exactly one account.
// SecretCiphertext is the sealed secret; listings never expose it, and
// reads return the opened plaintext instead.
type Credential struct {
	ID               string
	AccountID        string
	Title            string
	TitleNormalized  string
	URL              string
	LoginName        string
	ContactEmail     string
	Notes            string
	Category         Category
	Favorite         bool
	SecretCiphertext string
	CreatedAt        time.Time
	ModifiedAt       time.Time
}

// CredentialRevision is a prior ciphertext kept when an update replaces
// the secret.
type CredentialRevision struct {
	CredentialID string
	Ciphertext   string
	ReplacedAt   time.Time
}

// NormalizeTitle folds a credential title to its per-account uniqueness
// key (case-insensitive, trimmed).
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ListFilter narrows and pages List queries. Zero values mean "no filter";
// Limit of 0 falls back to the store default.
type ListFilter struct {
	Category      Category
	FavoritesOnly bool
	Search        string
	Limit         int
	Offset        int
}
