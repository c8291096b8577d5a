package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	for _, size := range []int{TokenSize128, TokenSize256, 24} {
		token, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		other, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEqual(t, token, other, "tokens should be unique")
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestGenerateHexToken(t *testing.T) {
	token, err := GenerateHexToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, token, 64)

	_, err = hex.DecodeString(token)
	require.NoError(t, err)
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("abc")
	require.Equal(t, fp, FingerprintToken("abc"), "fingerprint must be deterministic")
	require.NotEqual(t, fp, FingerprintToken("abd"))
	require.Len(t, fp, 43)
}

func TestTokenMatchesFingerprint(t *testing.T) {
	token, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	fp := FingerprintToken(token)

	require.True(t, TokenMatchesFingerprint(token, fp))
	require.False(t, TokenMatchesFingerprint(token+"x", fp))
	require.False(t, TokenMatchesFingerprint("", fp))
	require.False(t, TokenMatchesFingerprint(token, ""))
}
