package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Takvimwebserver/internal/auth"
	"Takvimwebserver/internal/domain"
	"Takvimwebserver/internal/service"
)

type stubUsersStore struct {
	t *testing.T

	upsertFunc       func(context.Context, string, time.Time) (domain.User, error)
	getByIDFunc      func(context.Context, string) (domain.User, error)
	setLastLoginFunc func(context.Context, string, time.Time) error
}

func (s *stubUsersStore) UpsertByTelegramUsername(ctx context.Context, username string, when time.Time) (domain.User, error) {
	if s.upsertFunc != nil {
		return s.upsertFunc(ctx, username, when)
	}
	s.t.Fatalf("UpsertByTelegramUsername called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	if s.getByIDFunc != nil {
		return s.getByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetByID called unexpectedly")
	return domain.User{}, errors.New("unexpected call")
}

func (s *stubUsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	if s.setLastLoginFunc != nil {
		return s.setLastLoginFunc(ctx, userID, when)
	}
	s.t.Fatalf("SetLastLogin called unexpectedly")
	return errors.New("unexpected call")
}

type stubVerificationsStore struct {
	t *testing.T

	replaceFunc      func(context.Context, string, string, time.Time) error
	consumeFunc      func(context.Context, string) (domain.VerificationToken, error)
	deleteByHashFunc func(context.Context, string) error
}

func (s *stubVerificationsStore) Replace(ctx context.Context, userID, tokenHash string, issuedAt time.Time) error {
	if s.replaceFunc != nil {
		return s.replaceFunc(ctx, userID, tokenHash, issuedAt)
	}
	s.t.Fatalf("Replace called unexpectedly")
	return errors.New("unexpected call")
}

func (s *stubVerificationsStore) Consume(ctx context.Context, tokenHash string) (domain.VerificationToken, error) {
	if s.consumeFunc != nil {
		return s.consumeFunc(ctx, tokenHash)
	}
	s.t.Fatalf("Consume called unexpectedly")
	return domain.VerificationToken{}, errors.New("unexpected call")
}

func (s *stubVerificationsStore) DeleteByHash(ctx context.Context, tokenHash string) error {
	if s.deleteByHashFunc != nil {
		return s.deleteByHashFunc(ctx, tokenHash)
	}
	s.t.Fatalf("DeleteByHash called unexpectedly")
	return errors.New("unexpected call")
}

type stubSender struct {
	sendFunc func(context.Context, string) error
}

func (s *stubSender) SendMessage(ctx context.Context, text string) error {
	if s.sendFunc != nil {
		return s.sendFunc(ctx, text)
	}
	return nil
}

func newTestAPI(login *service.LoginService, plans *service.PlanService) *api {
	return &api{
		logger:       slog.Default(),
		loginSvc:     login,
		planSvc:      plans,
		cookieCodec:  auth.NewCookieCodec([]byte(strings.Repeat("s", 32))),
		sessionTTL:   24 * time.Hour,
		loginLimiter: newLoginLimiter(),
	}
}

func TestAuthLoginMissingUsername(t *testing.T) {
	a := newTestAPI(&service.LoginService{
		Users:  &stubUsersStore{t: t},
		Tokens: &stubVerificationsStore{t: t},
		Sender: &stubSender{},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"username":""}`))
	rr := httptest.NewRecorder()
	a.handleAuthLogin(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestAuthLoginDisallowedUsernameTouchesNoStore(t *testing.T) {
	// Stubs without funcs fail the test on any store access.
	a := newTestAPI(&service.LoginService{
		Users:   &stubUsersStore{t: t},
		Tokens:  &stubVerificationsStore{t: t},
		Sender:  &stubSender{},
		Allowed: []string{"alice"},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"username":"mallory"}`))
	rr := httptest.NewRecorder()
	a.handleAuthLogin(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	var resp errorEnvelope
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != "forbidden" {
		t.Fatalf("unexpected error code: %s", resp.Error.Code)
	}
}

func TestAuthLoginRateLimited(t *testing.T) {
	a := newTestAPI(&service.LoginService{
		Users:   &stubUsersStore{t: t},
		Tokens:  &stubVerificationsStore{t: t},
		Sender:  &stubSender{},
		Allowed: []string{"alice"},
	}, nil)

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"username":"mallory"}`))
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		a.handleAuthLogin(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", last.Code)
	}
}

func TestAuthVerifySuccessSetsCookiePair(t *testing.T) {
	issued := time.Now().Add(-time.Minute)

	tokens := &stubVerificationsStore{
		t: t,
		consumeFunc: func(_ context.Context, tokenHash string) (domain.VerificationToken, error) {
			return domain.VerificationToken{UserID: "user-1", TokenHash: tokenHash, CreatedAt: issued}, nil
		},
	}
	users := &stubUsersStore{
		t: t,
		getByIDFunc: func(_ context.Context, id string) (domain.User, error) {
			return domain.User{ID: id, TelegramUsername: "alice"}, nil
		},
		setLastLoginFunc: func(_ context.Context, _ string, _ time.Time) error { return nil },
	}

	a := newTestAPI(&service.LoginService{
		Users:    users,
		Tokens:   tokens,
		TokenTTL: 5 * time.Minute,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/verify", strings.NewReader(`{"token":"raw-secret"}`))
	rr := httptest.NewRecorder()
	a.handleAuthVerify(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	var resp verifyResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Verified || resp.User.ID != "user-1" || resp.User.TelegramUsername != "alice" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
}

func TestAuthVerifyUnknownToken(t *testing.T) {
	tokens := &stubVerificationsStore{
		t: t,
		consumeFunc: func(_ context.Context, _ string) (domain.VerificationToken, error) {
			return domain.VerificationToken{}, domain.ErrNotFound
		},
	}

	a := newTestAPI(&service.LoginService{
		Users:  &stubUsersStore{t: t},
		Tokens: tokens,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/verify", strings.NewReader(`{"token":"bogus"}`))
	rr := httptest.NewRecorder()
	a.handleAuthVerify(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("no cookies must be set on failed verification")
	}
}

func TestAuthLogoutClearsCookies(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		setLastLoginFunc: func(_ context.Context, userID string, _ time.Time) error {
			if userID != "user-1" {
				t.Fatalf("unexpected user: %q", userID)
			}
			return nil
		},
	}

	a := newTestAPI(&service.LoginService{Users: users, Tokens: &stubVerificationsStore{t: t}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", strings.NewReader(`{"user_id":"user-1"}`))
	rr := httptest.NewRecorder()
	a.handleAuthLogout(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cleared cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.MaxAge != -1 {
			t.Fatalf("expected MaxAge=-1 on %s", c.Name)
		}
	}
}

func TestAuthLogoutMissingID(t *testing.T) {
	a := newTestAPI(&service.LoginService{
		Users:  &stubUsersStore{t: t},
		Tokens: &stubVerificationsStore{t: t},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", strings.NewReader(`{"user_id":""}`))
	rr := httptest.NewRecorder()
	a.handleAuthLogout(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestRequireAuthWithoutCookies(t *testing.T) {
	a := newTestAPI(&service.LoginService{
		Users:  &stubUsersStore{t: t},
		Tokens: &stubVerificationsStore{t: t},
	}, nil)

	handler := a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run without session proof")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestRequireAuthStaleUser(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		getByIDFunc: func(_ context.Context, _ string) (domain.User, error) {
			return domain.User{}, domain.ErrNotFound
		},
	}
	a := newTestAPI(&service.LoginService{Users: users, Tokens: &stubVerificationsStore{t: t}}, nil)

	handler := a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run for a removed user")
	})

	rr := httptest.NewRecorder()
	auth.SetSessionCookies(rr, a.cookieCodec, "user-1", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}

	rr = httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestRequireAuthPassesUser(t *testing.T) {
	users := &stubUsersStore{
		t: t,
		getByIDFunc: func(_ context.Context, id string) (domain.User, error) {
			return domain.User{ID: id, TelegramUsername: "alice"}, nil
		},
	}
	a := newTestAPI(&service.LoginService{Users: users, Tokens: &stubVerificationsStore{t: t}}, nil)

	var gotUser domain.User
	handler := a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	auth.SetSessionCookies(rr, a.cookieCodec, "user-1", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}

	rr = httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if gotUser.ID != "user-1" {
		t.Fatalf("unexpected user in context: %+v", gotUser)
	}
}
