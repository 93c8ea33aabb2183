// Package cryptox contains the cryptographic primitives of the vault:
// one-way password hashing and reversible sealing of stored secrets.
package cryptox

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor used unless configured otherwise.
const DefaultHashCost = 12

// Hasher performs salted one-way hashing of account and master passwords.
// bcrypt embeds a fresh random salt into every hash, so two hashes of the
// same plaintext never match byte-for-byte.
type Hasher struct {
	cost      int
	dummyHash []byte
}

// NewHasher constructs a Hasher with the given bcrypt cost. Costs outside
// the bcrypt-supported range fall back to DefaultHashCost. The dummy hash
// for DummyVerify is generated here at the same cost, so the miss path
// burns the same CPU as a real failed verify.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), cost)
	if err != nil {
		panic(err)
	}
	return &Hasher{cost: cost, dummyHash: dummy}
}

// Hash computes a salted bcrypt digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches the given bcrypt hash.
// A malformed hash is treated as a mismatch, never as an error.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// DummyVerify burns roughly the same CPU time as a failed Verify against a
// real hash at the configured cost. Login uses it when the account does
// not exist, so response timing does not reveal which of the two cases
// occurred.
func (h *Hasher) DummyVerify(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
}
