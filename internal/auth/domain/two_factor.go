package domain

import "time"

// AdminProfile holds a user's second-factor state. Secret and backup codes
// are ciphertexts produced by cryptox.SecretCipher.
type AdminProfile struct {
	UserID               string
	TwoFactorEnabled     bool
	TwoFactorSecret      *string // encrypted base32 TOTP secret
	TwoFactorBackupCodes *string // encrypted JSON array of backup-code hashes
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasSecret reports whether a TOTP secret has been stored.
func (p AdminProfile) HasSecret() bool {
	return p.TwoFactorSecret != nil && *p.TwoFactorSecret != ""
}

// TwoFactorSetup is returned once when a user starts enrolment.
type TwoFactorSetup struct {
	Secret     string // base32, for manual entry
	OTPAuthURL string // otpauth:// URI for QR rendering
}

type TwoFactorStatus struct {
	Enabled              bool
	BackupCodesRemaining int
}
