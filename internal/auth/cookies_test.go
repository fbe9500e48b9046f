package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCookieCodec_SignAndVerify(t *testing.T) {
	codec := NewCookieCodec([]byte(strings.Repeat("x", 32)))

	encoded := codec.Encode("abc")
	if encoded == "abc" {
		t.Fatalf("expected signed cookie value")
	}

	value, ok := codec.Decode(encoded)
	if !ok || value != "abc" {
		t.Fatalf("expected decode ok for signed cookie")
	}

	_, ok = codec.Decode(encoded + "x")
	if ok {
		t.Fatalf("expected tampered cookie to fail verification")
	}
}

func TestCookieCodec_Unsigned(t *testing.T) {
	codec := NewCookieCodec(nil)
	value, ok := codec.Decode("abc")
	if !ok || value != "abc" {
		t.Fatalf("expected unsigned cookie to decode")
	}
}

func TestSessionCookiePair(t *testing.T) {
	codec := NewCookieCodec([]byte(strings.Repeat("k", 32)))

	rr := httptest.NewRecorder()
	SetSessionCookies(rr, codec, "user-1", 24*time.Hour, false)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
			t.Fatalf("unexpected attributes on %s", c.Name)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	userID, ok := SessionUserID(req, codec)
	if !ok || userID != "user-1" {
		t.Fatalf("expected session user, got %q ok=%v", userID, ok)
	}
}

func TestSessionUserIDRequiresBothCookies(t *testing.T) {
	codec := NewCookieCodec([]byte(strings.Repeat("k", 32)))

	// Only the user id cookie.
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: UserIDCookieName, Value: codec.Encode("user-1")})
	if _, ok := SessionUserID(req, codec); ok {
		t.Fatalf("user id cookie alone must not authenticate")
	}

	// Only the verified flag.
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: VerifiedCookieName, Value: codec.Encode("true")})
	if _, ok := SessionUserID(req, codec); ok {
		t.Fatalf("verified cookie alone must not authenticate")
	}
}

func TestSessionUserIDRejectsForgedFlag(t *testing.T) {
	codec := NewCookieCodec([]byte(strings.Repeat("k", 32)))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: UserIDCookieName, Value: codec.Encode("user-1")})
	req.AddCookie(&http.Cookie{Name: VerifiedCookieName, Value: "true"})
	if _, ok := SessionUserID(req, codec); ok {
		t.Fatalf("unsigned verified flag must not authenticate")
	}
}

func TestClearSessionCookies(t *testing.T) {
	rr := httptest.NewRecorder()
	ClearSessionCookies(rr, false)

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.MaxAge != -1 {
			t.Fatalf("expected MaxAge=-1 on %s", c.Name)
		}
	}
}
