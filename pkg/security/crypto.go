// Package security provides the AES-GCM helper used to encrypt actor
// identities inside persisted audit records.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"strings"
)

// KeyFromEnv returns a 32-byte key for AES-GCM.
// Priority:
// 1) AUDIT_ENC_KEY (base64-encoded 32 bytes)
// 2) Derive from JWT_SECRET (sha256)
func KeyFromEnv() ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv("AUDIT_ENC_KEY")); v != "" {
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, err
		}
		if len(b) != 32 {
			return nil, errors.New("AUDIT_ENC_KEY must decode to 32 bytes")
		}
		return b, nil
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		jwtSecret = "SUPER_SECRET_KEY_CHANGE_ME"
	}
	sum := sha256.Sum256([]byte(jwtSecret))
	return sum[:], nil
}

// Cipher seals and opens short strings with AES-GCM. The nonce is
// prepended to the ciphertext and the whole payload base64-encoded.
type Cipher struct {
	gcm cipher.AEAD
}

func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{gcm: gcm}, nil
}

func (c *Cipher) EncryptString(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := c.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	payload := append(nonce, ciphertext...)
	return base64.StdEncoding.EncodeToString(payload), nil
}

func (c *Cipher) DecryptString(ciphertextB64 string) (string, error) {
	payload, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", err
	}

	ns := c.gcm.NonceSize()
	if len(payload) < ns {
		return "", errors.New("ciphertext too short")
	}
	nonce, ct := payload[:ns], payload[ns:]

	pt, err := c.gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
