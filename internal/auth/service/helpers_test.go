package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/siteauth/internal/auth/domain"
	"github.com/aussiebroadwan/siteauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/siteauth/pkg/cryptox"
	"github.com/aussiebroadwan/siteauth/pkg/jwtx"
	"github.com/aussiebroadwan/siteauth/pkg/otpx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	store     *sqlite.Store
	passwords *cryptox.PasswordHasher
	cipher    *cryptox.SecretCipher
	totp      *otpx.Engine
	tokens    *TokenService
	auth      *AuthService
	twoFactor *TwoFactorService
	users     *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(":memory:"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)

	cipher, err := cryptox.NewSecretCipher("test-two-factor-key")
	require.NoError(t, err)

	passwords := cryptox.NewPasswordHasher(bcrypt.MinCost)
	tokens := &TokenService{
		Signer:   signer,
		Verifier: jwtx.NewHS256Verifier(testSecret, "siteauth"),
		Issuer:   "siteauth",
	}
	engine := otpx.NewEngine("Marketing CMS")

	return &fixture{
		store:     st,
		passwords: passwords,
		cipher:    cipher,
		totp:      engine,
		tokens:    tokens,
		auth:      &AuthService{Store: st, Passwords: passwords, Tokens: tokens},
		twoFactor: &TwoFactorService{Store: st, Cipher: cipher, TOTP: engine, Tokens: tokens},
		users:     &UserService{Store: st},
	}
}

func (f *fixture) register(t *testing.T, email, password string, role domain.Role) domain.User {
	t.Helper()
	ctx := context.Background()

	u, err := f.auth.Register(ctx, email, password, "Test User")
	require.NoError(t, err)

	if role != domain.RoleUser {
		require.NoError(t, f.store.Users().UpdateRole(ctx, u.ID, role))
		u.Role = role
	}
	return u
}

// enableTwoFactor runs setup + enable and returns the plaintext secret and
// backup codes.
func (f *fixture) enableTwoFactor(t *testing.T, u domain.User) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := f.twoFactor.Setup(ctx, u)
	require.NoError(t, err)

	codes, err := f.twoFactor.Enable(ctx, u.ID, f.code(t, setup.Secret))
	require.NoError(t, err)
	return setup.Secret, codes
}

func (f *fixture) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := f.totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}
