// Package auth issues and verifies the two token kinds of the vault:
// signed stateless session tokens (JWT, HS256) and high-entropy recovery
// tokens validated only by stored-value comparison.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session token payload: the standard registered claims plus
// the authenticated account's id and normalized email.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"aid"`
	Email     string `json:"email"`
}

// GenerateSessionToken signs a session token for the given account, valid
// from now for validityDuration.
func GenerateSessionToken(accountID, email string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		AccountID: accountID,
		Email:     email,
	})
	return token.SignedString(secretKey)
}

// ParseSessionToken verifies signature, structure, and expiry, and returns
// the embedded claims. Expired tokens yield common.ErrTokenExpired; any
// other defect yields common.ErrTokenMalformed, so callers can answer with
// the right user-facing message.
func ParseSessionToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrTokenMalformed
	}
	if !token.Valid || claims.AccountID == "" {
		return nil, common.ErrTokenMalformed
	}

	return claims, nil
}
