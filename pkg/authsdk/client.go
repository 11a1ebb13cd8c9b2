package authsdk

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// RefreshCookie is the name of the HttpOnly cookie carrying the refresh token.
const RefreshCookie = "refreshToken"

// SDKClient is a client for the site authentication service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client whose HTTP client keeps cookies, so the
// refresh cookie set on login is replayed on refresh and logout.
func NewSDKClient(baseURL string) *SDKClient {
	jar, _ := cookiejar.New(nil) // only fails with a non-nil options value

	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// Register creates a new account with the "user" role.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", req)
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login performs the password step and returns the raw response. Most
// callers want Authenticate instead.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Authenticate logs in and returns a Session. Accounts with two-factor
// enabled yield a *TwoFactorRequiredError instead.
func (c *SDKClient) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	out, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if out.Requires2FA {
		return nil, &TwoFactorRequiredError{TempToken: out.TempToken, UserID: out.UserID}
	}

	var user User
	if out.User != nil {
		user = *out.User
	}
	return newSession(c, out.AccessToken, user), nil
}

// CompleteTwoFactorLogin finishes a login that stopped at the password step.
func (c *SDKClient) CompleteTwoFactorLogin(ctx context.Context, tempToken, code string, useBackupCode bool) (*Session, error) {
	body := TwoFactorCodeRequest{Token: code, UseBackupCode: useBackupCode}
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/verify-2fa-login", tempToken, body)
	if err != nil {
		return nil, err
	}

	var out TwoFactorLoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, out.AccessToken, out.User), nil
}

// Refresh rotates the refresh cookie held in the client's jar and returns a
// new access token.
func (c *SDKClient) Refresh(ctx context.Context) (*RefreshResponse, error) {
	return c.refresh(ctx, nil)
}

// RefreshWithToken is Refresh for callers holding the refresh token outside
// a cookie jar.
func (c *SDKClient) RefreshWithToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	return c.refresh(ctx, &RefreshRequest{RefreshToken: refreshToken})
}

func (c *SDKClient) refresh(ctx context.Context, body *RefreshRequest) (*RefreshResponse, error) {
	var payload any
	if body != nil {
		payload = body
	}

	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", "", payload)
	if err != nil {
		return nil, err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh cookie and asks the server to clear it.
func (c *SDKClient) Logout(ctx context.Context) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/logout", "", nil)
	if err != nil {
		return err
	}

	var out MessageResponse
	return decodeJSON(resp, &out, http.StatusOK)
}
