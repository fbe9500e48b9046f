package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// NewLoginToken returns a fresh login secret and its lookup hash.
// The raw value is what gets embedded in the Telegram login link; only
// the hash is ever persisted.
func NewLoginToken() (raw, tokenHash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashLoginToken(raw), nil
}

// HashLoginToken derives the stored lookup value for a raw secret.
func HashLoginToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
