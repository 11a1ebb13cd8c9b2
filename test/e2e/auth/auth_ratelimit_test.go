//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies /auth/login allows five attempts per
// minute for one email before answering 429.
func TestRateLimitLoginEndpoint(t *testing.T) {
	baseURL := setupAuthContainerWithDefaultRateLimits(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	for range 5 {
		_, err := client.Login(ctx, "victim@example.com", "wrong-password")
		assertStatus(t, err, http.StatusUnauthorized, "attempt before the limit")
	}

	_, err := client.Login(ctx, "victim@example.com", "wrong-password")
	assertStatus(t, err, http.StatusTooManyRequests, "sixth attempt")

	// The limiter keys on the email too, so other accounts are unaffected.
	_, err = client.Login(ctx, adminEmail, adminPassword)
	require.NoError(t, err)
}
