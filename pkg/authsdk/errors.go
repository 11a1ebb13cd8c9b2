package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoSession is returned when a Session has no access token.
var ErrNoSession = errors.New("authsdk: session has no access token")

// APIError is any non-success response from the service.
type APIError struct {
	StatusCode int

	// Message is the server's error text.
	Message string

	// Required and Actual are set on 403 responses from role-guarded routes.
	Required []string
	Actual   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Required) > 0 {
		return fmt.Sprintf("authsdk: %d %s (required %s, actual %s)",
			e.StatusCode, e.Message, strings.Join(e.Required, "|"), e.Actual)
	}
	return fmt.Sprintf("authsdk: %d %s", e.StatusCode, e.Message)
}

// TwoFactorRequiredError is returned by Authenticate when the account has
// two-factor enabled. Pass TempToken to CompleteTwoFactorLogin.
type TwoFactorRequiredError struct {
	TempToken string
	UserID    string
}

// Error implements the error interface.
func (e *TwoFactorRequiredError) Error() string {
	return "authsdk: two-factor verification required"
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// parseErrorResponse turns a non-success body into an APIError. Both the
// {error} and the {success:false,message} shapes are understood.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var payload struct {
		Error    string   `json:"error"`
		Message  string   `json:"message"`
		Required []string `json:"required"`
		Actual   string   `json:"actual"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}

	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	apiErr.Message = payload.Error
	if apiErr.Message == "" {
		apiErr.Message = payload.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	apiErr.Required = payload.Required
	apiErr.Actual = payload.Actual
	return apiErr
}
