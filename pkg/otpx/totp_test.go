package otpx_test

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/siteauth/pkg/otpx"
	"github.com/stretchr/testify/require"
)

func fixedEngine(now time.Time) *otpx.Engine {
	e := otpx.NewEngine("Marketing CMS")
	e.Now = func() time.Time { return now }
	return e
}

func TestGenerateSecret(t *testing.T) {
	e := otpx.NewEngine("Marketing CMS")

	key, err := e.GenerateSecret("alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, key.Secret)
	require.Equal(t, strings.ToUpper(key.Secret), key.Secret, "secret should be base32")

	u, err := url.Parse(key.URL)
	require.NoError(t, err)
	require.Equal(t, "otpauth", u.Scheme)
	require.Equal(t, "totp", u.Host)
	require.Equal(t, key.Secret, u.Query().Get("secret"))
	require.Equal(t, "Marketing CMS", u.Query().Get("issuer"))

	other, err := e.GenerateSecret("alice@example.com")
	require.NoError(t, err)
	require.NotEqual(t, key.Secret, other.Secret)
}

func TestVerifyCode_Window(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 45, 0, time.UTC)
	e := fixedEngine(now)

	key, err := e.GenerateSecret("alice@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"current step", 0, true},
		{"one step behind", -30 * time.Second, true},
		{"one step ahead", 30 * time.Second, true},
		{"two steps behind", -60 * time.Second, true},
		{"two steps ahead", 60 * time.Second, true},
		{"three steps behind", -90 * time.Second, false},
		{"three steps ahead", 90 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := e.GenerateCode(key.Secret, now.Add(tt.offset))
			require.NoError(t, err)
			require.Equal(t, tt.want, e.VerifyCode(key.Secret, code))
		})
	}
}

func TestVerifyCode_RejectsMalformed(t *testing.T) {
	e := otpx.NewEngine("Marketing CMS")
	key, err := e.GenerateSecret("bob@example.com")
	require.NoError(t, err)

	for _, code := range []string{"", "12345", "1234567", "12a456", " 123456", "------"} {
		require.False(t, e.VerifyCode(key.Secret, code), "code %q", code)
	}
}

func TestVerifyCode_BadSecret(t *testing.T) {
	e := otpx.NewEngine("Marketing CMS")
	require.False(t, e.VerifyCode("not base32!!", "123456"))
}
