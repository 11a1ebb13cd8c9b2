/*
Package authsdk provides a client SDK for the site authentication service.

# Overview

The service authenticates CMS users with email and password, optionally
followed by a TOTP second factor, and hands out short-lived access tokens
alongside a refresh token that lives in an HttpOnly cookie. The SDK mirrors
that flow: SDKClient covers public endpoints and Session covers everything
that needs an access token.

# SDKClient vs Session

Create an SDKClient for public endpoints and to start a login:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Check service health
	health, err := client.GetLiveness(ctx)

	// Create an account
	reg, err := client.Register(ctx, authsdk.RegisterRequest{...})

	// Log in
	session, err := client.Authenticate(ctx, email, password)

When the account has two-factor enabled, Authenticate returns a
*TwoFactorRequiredError carrying the pending token. Finish the login with a
TOTP or backup code:

	var tfa *authsdk.TwoFactorRequiredError
	if errors.As(err, &tfa) {
		session, err = client.CompleteTwoFactorLogin(ctx, tfa.TempToken, code, false)
	}

Sessions refresh their access token once on a 401 using the refresh cookie
held in the client's cookie jar:

	me, err := session.Me(ctx)
	status, err := session.TwoFactorStatus(ctx)

# Error Handling

Every non-success response is returned as an *APIError carrying the status
code and the server's message. Use errors.As to inspect it:

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
		// apiErr.Required and apiErr.Actual describe the role mismatch
	}

# Thread Safety

SDKClient and Session are safe for concurrent use.
*/
package authsdk
