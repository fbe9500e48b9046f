package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	UserIDCookieName   = "takvim_uid"
	VerifiedCookieName = "takvim_verified"

	verifiedCookieValue = "true"
)

// CookieCodec signs cookie values with HMAC-SHA256 so the session
// proof cannot be minted client-side. An empty secret disables signing
// (dev convenience only).
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret []byte) CookieCodec {
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)
	return CookieCodec{secret: secretCopy}
}

func (c CookieCodec) Encode(value string) string {
	if len(c.secret) == 0 {
		return value
	}

	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(value))
	sig := mac.Sum(nil)

	return value + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func (c CookieCodec) Decode(cookieValue string) (string, bool) {
	if len(c.secret) == 0 {
		return cookieValue, cookieValue != ""
	}

	value, sigB64, ok := strings.Cut(cookieValue, ".")
	if !ok || value == "" || sigB64 == "" {
		return "", false
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || len(sig) != sha256.Size {
		return "", false
	}

	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(value))
	expected := mac.Sum(nil)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", false
	}

	return value, true
}

// SetSessionCookies writes the correlated session-proof pair. Both
// cookies must survive for the proof to count; either one alone is
// worthless to the gate.
func SetSessionCookies(w http.ResponseWriter, codec CookieCodec, userID string, ttl time.Duration, secure bool) {
	setProofCookie(w, UserIDCookieName, codec.Encode(userID), ttl, secure)
	setProofCookie(w, VerifiedCookieName, codec.Encode(verifiedCookieValue), ttl, secure)
}

func ClearSessionCookies(w http.ResponseWriter, secure bool) {
	clearProofCookie(w, UserIDCookieName, secure)
	clearProofCookie(w, VerifiedCookieName, secure)
}

// SessionUserID extracts the verified user ID from the request's
// cookie pair. It returns false unless both cookies are present, both
// signatures check out, and the verified flag says "true".
func SessionUserID(r *http.Request, codec CookieCodec) (string, bool) {
	uidCookie, err := r.Cookie(UserIDCookieName)
	if err != nil || uidCookie.Value == "" {
		return "", false
	}
	verifiedCookie, err := r.Cookie(VerifiedCookieName)
	if err != nil || verifiedCookie.Value == "" {
		return "", false
	}

	userID, ok := codec.Decode(uidCookie.Value)
	if !ok || userID == "" {
		return "", false
	}
	verified, ok := codec.Decode(verifiedCookie.Value)
	if !ok || verified != verifiedCookieValue {
		return "", false
	}

	return userID, true
}

func setProofCookie(w http.ResponseWriter, name, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	})
}

func clearProofCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
