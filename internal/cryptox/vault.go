package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
)

// VaultKeySize is the required length of the symmetric key (AES-256).
const VaultKeySize = 32

// Vault performs authenticated symmetric encryption of stored secrets
// using AES-256-GCM with a single server-held key. A fresh random nonce is
// generated for every Seal, so sealing the same plaintext twice yields
// different ciphertexts and equality between stored secrets never leaks.
type Vault struct {
	aead cipher.AEAD
}

// NewVault constructs a Vault from a 32-byte key. A key of any other
// length is a configuration error.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != VaultKeySize {
		return nil, common.ErrInvalidVaultKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext and returns base64(nonce || ciphertext).
func (v *Vault) Seal(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal with the current key. Any failure
// to authenticate (tampering, truncation, wrong key, bad encoding) is
// reported as common.ErrDecryptionFailed so the caller can answer with a
// generic message instead of echoing cipher internals.
func (v *Vault) Open(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", common.ErrDecryptionFailed
	}
	ns := v.aead.NonceSize()
	if len(data) < ns {
		return "", common.ErrDecryptionFailed
	}
	plaintext, err := v.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", common.ErrDecryptionFailed
	}
	return string(plaintext), nil
}
