package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	h := HashPassword("pw123456")
	require.True(t, strings.HasPrefix(h, "argon2id$"))

	ok, err := VerifyPassword(h, "pw123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(h, "pw1234567")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	a := HashPassword("same")
	b := HashPassword("same")
	assert.NotEqual(t, a, b, "two hashes of the same password must use different salts")
}

func TestDeriveKey_Deterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	assert.Equal(t, DeriveKey([]byte("pw"), salt), DeriveKey([]byte("pw"), salt))
	assert.Len(t, DeriveKey([]byte("pw"), salt), keySize)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, bad := range []string{
		"",
		"plain",
		"bcrypt$00$00",
		"argon2id$zz$00",
		"argon2id$0011$0011",
	} {
		_, err := VerifyPassword(bad, "pw")
		assert.ErrorIs(t, err, ErrMalformedHash, "input %q", bad)
	}
}
