package cryptox

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault(common.GenerateRandByteArray(VaultKeySize))
	require.NoError(t, err)
	return v
}

func TestSeal_OpenRoundTrip(t *testing.T) {
	v := testVault(t)

	for _, plaintext := range []string{"", "p@ssw0rd", "пароль", "line1\nline2"} {
		ct, err := v.Seal(plaintext)
		require.NoError(t, err)

		got, err := v.Open(ct)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestSeal_NonDeterministic(t *testing.T) {
	v := testVault(t)

	a, err := v.Seal("same secret")
	require.NoError(t, err)
	b, err := v.Seal("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "identical plaintexts must seal to different ciphertexts")
}

func TestOpen_TamperedCiphertext(t *testing.T) {
	v := testVault(t)

	ct, err := v.Seal("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ct)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01

	_, err = v.Open(base64.StdEncoding.EncodeToString(raw))
	assert.True(t, errors.Is(err, common.ErrDecryptionFailed))
}

func TestOpen_WrongKey(t *testing.T) {
	ct, err := testVault(t).Seal("secret")
	require.NoError(t, err)

	_, err = testVault(t).Open(ct)
	assert.True(t, errors.Is(err, common.ErrDecryptionFailed))
}

func TestOpen_GarbageInputs(t *testing.T) {
	v := testVault(t)

	for _, in := range []string{"", "!!!not-base64!!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := v.Open(in)
		assert.True(t, errors.Is(err, common.ErrDecryptionFailed), "input %q", in)
	}
}

func TestNewVault_KeyLength(t *testing.T) {
	_, err := NewVault([]byte("too short"))
	assert.True(t, errors.Is(err, common.ErrInvalidVaultKey))

	_, err = NewVault(common.GenerateRandByteArray(VaultKeySize))
	assert.NoError(t, err)
}
