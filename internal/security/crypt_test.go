package security

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
}

func TestTokenCipherSealOpen(t *testing.T) {
	c, err := NewTokenCipher(testKey())
	require.NoError(t, err)

	sealed, err := c.Seal("shpat_123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "shpat_123")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "shpat_123", plain)
}

func TestNewTokenCipherRejectsShortKey(t *testing.T) {
	_, err := NewTokenCipher(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestTokenCipherOpenErrors(t *testing.T) {
	c, err := NewTokenCipher(testKey())
	require.NoError(t, err)

	_, err = c.Open("AAAA")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	_, err = c.Open("!!not-base64!!")
	assert.Error(t, err)

	other, err := NewTokenCipher(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("z", 32))))
	require.NoError(t, err)
	sealed, err := other.Seal("secret")
	require.NoError(t, err)
	_, err = c.Open(sealed)
	assert.Error(t, err)
}
