package auth

import "github.com/dmitrijs2005/passvault/internal/common"

// recoveryTokenBytes gives 256 bits of entropy per token.
const recoveryTokenBytes = 32

// NewRecoveryToken returns a random opaque token for the password-reset
// flow. It carries no signature or structure; it is valid only by exact
// match against the value stored on the account, within the expiry the
// caller sets.
func NewRecoveryToken() (string, error) {
	return common.MakeRandHexString(recoveryTokenBytes)
}
