package otpx

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	// BackupCodeAlphabet is the character set backup codes are drawn from.
	BackupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// BackupCodeLength is the number of characters in a backup code.
	BackupCodeLength = 8

	// DefaultBackupCodeCount is how many codes are issued per set.
	DefaultBackupCodeCount = 10
)

// GenerateBackupCodes returns n random backup codes.
func GenerateBackupCodes(n int) ([]string, error) {
	if n <= 0 {
		n = DefaultBackupCodeCount
	}

	alphabetLen := big.NewInt(int64(len(BackupCodeAlphabet)))
	codes := make([]string, n)
	for i := range codes {
		buf := make([]byte, BackupCodeLength)
		for j := range buf {
			idx, err := rand.Int(rand.Reader, alphabetLen)
			if err != nil {
				return nil, fmt.Errorf("otpx: generate backup code: %w", err)
			}
			buf[j] = BackupCodeAlphabet[idx.Int64()]
		}
		codes[i] = string(buf)
	}

	return codes, nil
}

// CanonicalizeBackupCode upper-cases code and drops spaces and dashes so that
// "abcd-1234" and "ABCD1234" are the same code.
func CanonicalizeBackupCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range strings.ToUpper(strings.TrimSpace(code)) {
		if r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HashBackupCode returns the stored form of a backup code. The user id salts
// the hash so identical codes for different users never collide.
func HashBackupCode(userID, code string) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(CanonicalizeBackupCode(code)))
	return hex.EncodeToString(h.Sum(nil))
}

// HashBackupCodes hashes every code in codes for userID.
func HashBackupCodes(userID string, codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = HashBackupCode(userID, c)
	}
	return out
}

// VerifyBackupCode reports whether code matches one of hashes.
func VerifyBackupCode(userID, code string, hashes []string) bool {
	return matchBackupCode(userID, code, hashes) >= 0
}

// ConsumeBackupCode removes the hash matching code and returns the remaining
// hashes. When nothing matches, hashes is returned unchanged with false.
func ConsumeBackupCode(userID, code string, hashes []string) ([]string, bool) {
	i := matchBackupCode(userID, code, hashes)
	if i < 0 {
		return hashes, false
	}

	remaining := make([]string, 0, len(hashes)-1)
	remaining = append(remaining, hashes[:i]...)
	remaining = append(remaining, hashes[i+1:]...)
	return remaining, true
}

// matchBackupCode compares against every entry so timing does not reveal
// the position of a match.
func matchBackupCode(userID, code string, hashes []string) int {
	if len(CanonicalizeBackupCode(code)) != BackupCodeLength {
		return -1
	}

	want := []byte(HashBackupCode(userID, code))
	found := -1
	for i, h := range hashes {
		if subtle.ConstantTimeCompare(want, []byte(h)) == 1 && found < 0 {
			found = i
		}
	}
	return found
}
