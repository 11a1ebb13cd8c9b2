package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/siteauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newPair(t *testing.T) (*jwtx.HS256Signer, *jwtx.HS256Verifier) {
	t.Helper()
	s, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	return s, jwtx.NewHS256Verifier(testSecret, "siteauth")
}

func TestNewHS256Signer_ShortSecret(t *testing.T) {
	_, err := jwtx.NewHS256Signer([]byte("too-short"))
	require.Error(t, err)
}

func TestHS256_RoundTrip(t *testing.T) {
	signer, verifier := newPair(t)
	require.Equal(t, "HS256", signer.Alg())

	claims := jwtx.NewClaims("user-1", "alice@example.com", "content", jwtx.TypeRefresh, "", "siteauth", time.Hour, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, claims.Subject, got.Subject)
	require.Equal(t, claims.Email, got.Email)
	require.Equal(t, claims.Role, got.Role)
	require.Equal(t, jwtx.TypeRefresh, got.Type)
	require.Equal(t, claims.ID, got.ID)
}

func TestHS256_Rejections(t *testing.T) {
	signer, verifier := newPair(t)
	now := time.Now()

	valid, err := signer.Sign(jwtx.NewClaims("user-1", "a@example.com", "user", jwtx.TypeAccess, "", "siteauth", time.Hour, now))
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewClaims("user-1", "a@example.com", "user", jwtx.TypeAccess, "", "siteauth", -time.Minute, now))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpiredToken)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewClaims("user-1", "a@example.com", "user", jwtx.TypeAccess, "", "elsewhere", time.Hour, now))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := jwtx.NewHS256Verifier([]byte("ffffffffffffffffffffffffffffffff"), "siteauth")
		_, err := other.Verify(valid)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(valid, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "x." + parts[2]

		_, err := verifier.Verify(tampered)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := jwtx.NewClaims("user-1", "a@example.com", "admin", jwtx.TypeAccess, "", "siteauth", time.Hour, now)
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := jwtx.NewClaims("user-1", "a@example.com", "user", jwtx.TypeAccess, "", "siteauth", time.Hour, now)
		claims.ExpiresAt = nil
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidToken)
	})

	t.Run("unknown type", func(t *testing.T) {
		claims := jwtx.NewClaims("user-1", "a@example.com", "user", jwtx.TokenType("id"), "", "siteauth", time.Hour, now)
		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrWrongType)
	})
}

func TestHS256_Leeway(t *testing.T) {
	signer, verifier := newPair(t)
	verifier.WithLeeway(time.Minute)

	token, err := signer.Sign(jwtx.NewClaims("user-1", "a@example.com", "user", jwtx.TypeAccess, "", "siteauth", -10*time.Second, time.Now()))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.NoError(t, err)
}
