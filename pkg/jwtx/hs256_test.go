package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bluesystem/verifika/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	testSecret  = []byte("0123456789abcdef0123456789abcdef")
	otherSecret = []byte("fedcba9876543210fedcba9876543210")
	testIssuer  = "verifika-api"
)

func newPair(t *testing.T) (jwtx.Signer, *jwtx.HS256Verifier) {
	t.Helper()
	s, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	v, err := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: testIssuer})
	require.NoError(t, err)
	return s, v
}

func adminIdentity() jwtx.Identity {
	return jwtx.Identity{ID: 1, Email: "admin@x.io", FirstName: "Admin", LastName: "Root", Role: "admin", Status: "activo"}
}

func TestHS256_RoundTrip(t *testing.T) {
	t.Parallel()
	signer, verifier := newPair(t)
	require.Equal(t, "HS256", signer.Alg())

	for _, id := range []jwtx.Identity{
		adminIdentity(),
		{ID: 99, Email: "tec@x.io", Role: "tecnico", Status: "activo"},
		{ID: 7, Email: "val@x.io", Role: "validador", Status: "pendiente"},
	} {
		raw, err := signer.Sign(jwtx.NewAccessClaims(id, testIssuer, time.Hour, time.Now()))
		require.NoError(t, err)

		claims, err := verifier.Verify(raw)
		require.NoError(t, err)
		require.Equal(t, id.ID, claims.AccountID)
		require.Equal(t, id.Email, claims.Email)
		require.Equal(t, id.Role, claims.Role)
	}
}

func TestHS256_ExpiredIsNeverInvalid(t *testing.T) {
	t.Parallel()
	signer, verifier := newPair(t)

	past := time.Now().Add(-48 * time.Hour)
	raw, err := signer.Sign(jwtx.NewAccessClaims(adminIdentity(), testIssuer, time.Hour, past))
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.Error(t, err)
	require.ErrorIs(t, err, jwtx.ErrExpired)
	require.Equal(t, jwtx.KindExpired, jwtx.KindOf(err))
}

func TestHS256_InvalidTokens(t *testing.T) {
	t.Parallel()
	signer, verifier := newPair(t)

	foreign, err := jwtx.NewSignerHS256(otherSecret)
	require.NoError(t, err)

	good := jwtx.NewAccessClaims(adminIdentity(), testIssuer, time.Hour, time.Now())

	forged, err := foreign.Sign(good)
	require.NoError(t, err)

	wrongIssuer, err := signer.Sign(jwtx.NewAccessClaims(adminIdentity(), "other-api", time.Hour, time.Now()))
	require.NoError(t, err)

	crossAudience := good
	crossAudience.Audience = jwt.ClaimStrings{jwtx.AudienceFor(2)}
	crossed, err := signer.Sign(crossAudience)
	require.NoError(t, err)

	noneTok := jwt.NewWithClaims(jwt.SigningMethodNone, good)
	unsigned, err := noneTok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	valid, err := signer.Sign(good)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-jwt", jwtx.ErrMalformed},
		{"empty", "", jwtx.ErrMalformed},
		{"foreign secret", forged, jwtx.ErrInvalidSig},
		{"tampered signature", tampered, jwtx.ErrInvalidSig},
		{"alg none", unsigned, jwtx.ErrInvalidSig},
		{"wrong issuer", wrongIssuer, jwtx.ErrIssuer},
		{"audience for another account", crossed, jwtx.ErrAudience},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, jwtx.KindInvalid, jwtx.KindOf(err))
		})
	}
}

func TestHS256_ForgedAndExpiredIsInvalid(t *testing.T) {
	t.Parallel()
	_, verifier := newPair(t)
	foreign, err := jwtx.NewSignerHS256(otherSecret)
	require.NoError(t, err)

	raw, err := foreign.Sign(jwtx.NewAccessClaims(adminIdentity(), testIssuer, time.Hour, time.Now().Add(-48*time.Hour)))
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.Equal(t, jwtx.KindInvalid, jwtx.KindOf(err))
}

func TestHS256_NotYetValid(t *testing.T) {
	t.Parallel()
	signer, verifier := newPair(t)

	c := jwtx.NewAccessClaims(adminIdentity(), testIssuer, time.Hour, time.Now())
	c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
	raw, err := signer.Sign(c)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrNotYetValid)
	require.Equal(t, jwtx.KindVerification, jwtx.KindOf(err))
}

func TestHS256_SecretRequired(t *testing.T) {
	_, err := jwtx.NewSignerHS256(nil)
	require.ErrorIs(t, err, jwtx.ErrNoSecret)

	_, err = jwtx.NewSignerHS256([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)

	_, err = jwtx.NewVerifierHS256(nil, jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrNoSecret)
}
