package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// cipherKeySize selects AES-256.
	cipherKeySize = 32

	// cipherKDFIterations is the PBKDF2 work factor for deriving the key.
	cipherKDFIterations = 100_000
)

// cipherKDFSalt is fixed so the same passphrase always yields the same key
// across restarts. The passphrase itself carries the entropy.
var cipherKDFSalt = []byte("siteauth/two-factor/v1")

// ErrDecryption is returned for any payload that cannot be opened, whether
// it is malformed or was sealed under a different key.
var ErrDecryption = errors.New("cryptox: decryption failed")

// SecretCipher encrypts small secrets (TOTP seeds, backup code bundles) for
// storage. Payloads have the form hex(iv) + ":" + hex(ciphertext||tag).
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher derives an AES-256-GCM key from passphrase with PBKDF2-SHA256.
func NewSecretCipher(passphrase string) (*SecretCipher, error) {
	if passphrase == "" {
		return nil, errors.New("cryptox: empty encryption passphrase")
	}

	key := pbkdf2.Key([]byte(passphrase), cipherKDFSalt, cipherKDFIterations, cipherKeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}

	return &SecretCipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("cryptox: generate iv: %w", err)
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt opens a payload produced by Encrypt.
func (c *SecretCipher) Decrypt(payload string) (string, error) {
	ivHex, sealedHex, ok := strings.Cut(payload, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing separator", ErrDecryption)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != c.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad iv", ErrDecryption)
	}

	sealed, err := hex.DecodeString(sealedHex)
	if err != nil || len(sealed) < c.aead.Overhead() {
		return "", fmt.Errorf("%w: bad ciphertext", ErrDecryption)
	}

	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryption)
	}

	return string(plaintext), nil
}
