package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-with-enough-bytes"

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssuer_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewIssuer(secret, time.Hour, fixedNow(now))
	require.NoError(t, err)

	raw, issued, err := issuer.Issue("user-1", "guest")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, now.Add(time.Hour), issued.ExpiresAt)

	got, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, issued, got)
}

func TestIssuer_UniqueIDs(t *testing.T) {
	issuer, err := NewIssuer(secret, time.Hour, nil)
	require.NoError(t, err)

	_, first, err := issuer.Issue("user-1", "guest")
	require.NoError(t, err)
	_, second, err := issuer.Issue("user-1", "guest")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	issuer, err := NewIssuer(secret, time.Minute, func() time.Time { return clock })
	require.NoError(t, err)

	raw, _, err := issuer.Issue("user-1", "admin")
	require.NoError(t, err)

	clock = now.Add(2 * time.Minute)
	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestIssuer_RejectsForeignSecret(t *testing.T) {
	issuer, err := NewIssuer(secret, time.Hour, nil)
	require.NoError(t, err)
	other, err := NewIssuer("another-secret-entirely-xx", time.Hour, nil)
	require.NoError(t, err)

	raw, _, err := other.Issue("user-1", "admin")
	require.NoError(t, err)

	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsTamperedPayload(t *testing.T) {
	issuer, err := NewIssuer(secret, time.Hour, nil)
	require.NoError(t, err)

	raw, _, err := issuer.Issue("user-1", "guest")
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1", "role": "admin"})
	forgedRaw, err := forged.SignedString([]byte("x"))
	require.NoError(t, err)
	forgedParts := strings.Split(forgedRaw, ".")

	_, err = issuer.Parse(parts[0] + "." + forgedParts[1] + "." + parts[2])
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsNoneAlgorithm(t *testing.T) {
	issuer, err := NewIssuer(secret, time.Hour, nil)
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"jti": "x",
		"iss": issuerName,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_Validation(t *testing.T) {
	_, err := NewIssuer("  ", time.Hour, nil)
	assert.Error(t, err)

	issuer, err := NewIssuer(secret, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, issuer.TTL())

	_, _, err = issuer.Issue("", "guest")
	assert.Error(t, err)

	_, err = issuer.Parse("")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
