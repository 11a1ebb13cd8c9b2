//go:build e2e

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/siteauth/pkg/authsdk"
	"github.com/aussiebroadwan/siteauth/pkg/otpx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and shared assertions for the auth service end-to-end
 * tests. Run with: go test -tags e2e ./test/e2e/...
 */

const (
	testImageName = "siteauth-test:latest"

	adminEmail    = "admin@example.com"
	adminPassword = "Admin123-password"
	adminFullName = "Administrator"

	totpIssuer = "Marketing CMS"
)

// TestMain builds the image once for every test and removes it afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building auth service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up auth service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // image might not exist
}

// baseEnv is the container environment shared by every test.
func baseEnv() map[string]string {
	return map[string]string{
		"JWT_SECRET":                "e2e-secret-0123456789abcdef0123456789",
		"TWO_FACTOR_ENCRYPTION_KEY": "e2e-two-factor-key",
		"TWO_FACTOR_ISSUER":         totpIssuer,
		"ADMIN_EMAIL":               adminEmail,
		"ADMIN_PASSWORD":            adminPassword,
		"ADMIN_FULL_NAME":           adminFullName,
		"BCRYPT_COST":               "4",
		"ENV":                       "test",
		"LOG_LEVEL":                 "info",
		"LOG_FORMAT":                "json",
	}
}

// relaxedLimits keeps the suite clear of 429s; tests make many rapid calls.
func relaxedLimits() map[string]string {
	return map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
		"RATELIMIT_LENIENT_REQUESTS":  "1000",
		"RATELIMIT_LENIENT_BURST":     "1000",
	}
}

// setupAuthContainer starts the service with relaxed rate limits and
// returns its base URL.
func setupAuthContainer(t *testing.T) string {
	t.Helper()
	env := baseEnv()
	maps.Copy(env, relaxedLimits())
	return startContainer(t, env)
}

// setupAuthContainerWithDefaultRateLimits is for tests that exercise the
// limiter itself.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) string {
	t.Helper()
	return startContainer(t, baseEnv())
}

func startContainer(t *testing.T, env map[string]string) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/readyz").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

// loginAdmin signs in as the seeded administrator.
func loginAdmin(t *testing.T, client *authsdk.SDKClient) *authsdk.Session {
	t.Helper()

	session, err := client.Authenticate(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err, "admin login should succeed")
	require.Equal(t, "admin", session.User().Role)
	return session
}

// registerUser creates an account and returns it with a signed-in session.
func registerUser(t *testing.T, client *authsdk.SDKClient, email, password, name string) (authsdk.User, *authsdk.Session) {
	t.Helper()
	ctx := t.Context()

	resp, err := client.Register(ctx, authsdk.RegisterRequest{Email: email, Password: password, FullName: name})
	require.NoError(t, err, "register should succeed")
	require.NotEmpty(t, resp.User.ID)

	session, err := client.Authenticate(ctx, email, password)
	require.NoError(t, err)
	return resp.User, session
}

// totpCode computes the current code for secret, like an authenticator app.
func totpCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := otpx.NewEngine(totpIssuer).GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

// assertStatus checks err is an API error with the given status.
func assertStatus(t *testing.T, err error, status int, context string) *authsdk.APIError {
	t.Helper()
	require.Error(t, err, context)

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "%s - want API error, got %v", context, err)
	require.Equal(t, status, apiErr.StatusCode, "%s - %s", context, apiErr.Message)
	return apiErr
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
