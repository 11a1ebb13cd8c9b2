// Package otpx wraps RFC 6238 time-based one-time passwords and the
// single-use backup codes that accompany them.
package otpx

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// DefaultPeriod is the TOTP step length in seconds.
	DefaultPeriod = 30

	// DefaultSkew is how many steps either side of now are accepted.
	DefaultSkew = 2

	// CodeLength is the number of digits in a TOTP code.
	CodeLength = 6

	secretSize = 20
)

// Key is a freshly generated TOTP secret and its provisioning URI.
type Key struct {
	Secret string // base32, no padding
	URL    string // otpauth://totp/...
}

// Engine generates and verifies TOTP codes. The zero value is not usable;
// create one with NewEngine.
type Engine struct {
	Issuer string
	Period uint
	Skew   uint

	// Now returns the reference time for verification. Defaults to time.Now.
	Now func() time.Time
}

// NewEngine returns an engine with the default period and skew.
func NewEngine(issuer string) *Engine {
	return &Engine{
		Issuer: issuer,
		Period: DefaultPeriod,
		Skew:   DefaultSkew,
		Now:    time.Now,
	}
}

// GenerateSecret creates a new random secret for account.
func (e *Engine) GenerateSecret(account string) (Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.Issuer,
		AccountName: account,
		Period:      e.Period,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Key{}, fmt.Errorf("otpx: generate secret: %w", err)
	}

	return Key{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifyCode reports whether code is valid for secret at the current time,
// allowing Skew steps of clock drift in either direction.
func (e *Engine) VerifyCode(secret, code string) bool {
	if !isNumeric(code, CodeLength) {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, e.now().UTC(), e.opts())
	if err != nil {
		return false
	}
	return ok
}

// GenerateCode returns the code for secret at t.
func (e *Engine) GenerateCode(secret string, t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, t.UTC(), e.opts())
	if err != nil {
		return "", fmt.Errorf("otpx: generate code: %w", err)
	}
	return code, nil
}

func (e *Engine) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    e.Period,
		Skew:      e.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func isNumeric(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
